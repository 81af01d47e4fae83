// Package grace implements the Grace Fletcher "Senior Sherpa" discovery
// engine: a stateful dialogue persona that walks a family through a fixed
// discovery script (trust building, situation discovery, ...) while
// extracting structured facts from free text via an LLM and persisting them
// as append-only memory records.
//
// # Quick Start
//
// Wire an Engine with a Provider (LLM backend) and a Store (memory log):
//
//	provider := openaicompat.NewProvider(apiKey, model, baseURL)
//	store := sqlite.New("grace.db")
//
//	engine := grace.NewEngine(provider, store, grace.WithLogger(logger))
//
//	result := engine.Handle(ctx, msg, func(c grace.Content) {
//		fmt.Println(c.Text)
//	})
//
// # Core Contracts
//
// The root package defines the collaborator contracts and the domain logic:
//
//   - [Provider]: LLM backend (chat completion)
//   - [Store]: append-only record log per conversation room
//   - [Extractor]: structured fact extraction from free text
//   - [Tracer]: optional span tracing for engine operations
//
// The fold over historical snapshots ([MergeRecords]), stage resolution
// ([ResolveStage]), and the per-stage handlers live here too.
//
// # Included Implementations
//
// Providers: provider/openaicompat (any OpenAI-compatible API).
// Storage: store/sqlite (local, pure Go), store/postgres (pgx).
// Observability: observer (OTEL-backed Tracer and provider instrumentation).
//
// See cmd/gracebot for a complete reference wiring.
package grace
