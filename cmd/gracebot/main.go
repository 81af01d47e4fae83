// Command gracebot runs the Grace discovery conversation as an interactive
// terminal chat. Each line typed is one user turn.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seniorsherpa/grace"
	"github.com/seniorsherpa/grace/internal/config"
	"github.com/seniorsherpa/grace/observer"
	"github.com/seniorsherpa/grace/provider/openaicompat"
	"github.com/seniorsherpa/grace/store/postgres"
	"github.com/seniorsherpa/grace/store/sqlite"
)

func main() {
	cfg := config.Load(os.Getenv("GRACE_CONFIG"))

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Reply composition and fact extraction can run on different models;
	// the extractor config falls back to the LLM config when unset.
	var llm grace.Provider = openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	llm = grace.WithRetry(llm, grace.RetryLogger(logger))

	var extractorLLM grace.Provider = openaicompat.NewProvider(
		cfg.Extractor.APIKey, cfg.Extractor.Model, cfg.LLM.BaseURL,
		openaicompat.WithName("extractor"))
	extractorLLM = grace.WithRetry(extractorLLM, grace.RetryLogger(logger))

	engineOpts := []grace.EngineOption{
		grace.WithLogger(logger),
		grace.WithTable(cfg.Agent.Table),
	}
	if cfg.Agent.ID != "" {
		engineOpts = append(engineOpts, grace.WithAgentID(cfg.Agent.ID))
	}

	// Observer (opt-in via config)
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(context.Background(), pricing)
		if err != nil {
			log.Fatalf("[observer] init failed: %v", err)
		}
		defer shutdown(context.Background())

		llm = observer.WrapProvider(llm, cfg.LLM.Model, inst)
		extractorLLM = observer.WrapProvider(extractorLLM, cfg.Extractor.Model, inst)
		engineOpts = append(engineOpts, grace.WithTracer(observer.NewTracer()))
		log.Println("[observer] OTEL observability enabled")
	}

	engineOpts = append(engineOpts,
		grace.WithExtractor(grace.NewExtractor(extractorLLM, grace.ExtractorLogger(logger))))

	// Store by configured driver.
	store, cleanup, err := openStore(cfg)
	if err != nil {
		log.Fatalf("[store] open failed: %v", err)
	}
	defer cleanup()
	if err := store.Init(context.Background()); err != nil {
		log.Fatalf("[store] init failed: %v", err)
	}

	var handler observer.TurnHandler = grace.NewEngine(llm, store, engineOpts...)
	if inst != nil {
		handler = observer.WrapEngine(handler, inst)
	}

	runREPL(handler)
}

func openStore(cfg config.Config) (grace.Store, func(), error) {
	switch cfg.Database.Driver {
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.Database.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.New(pool), pool.Close, nil
	default:
		s := sqlite.New(cfg.Database.Path)
		return s, func() { _ = s.Close() }, nil
	}
}

func runREPL(handler observer.TurnHandler) {
	roomID := grace.NewID()
	userID := grace.NewID()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nGoodbye!")
		os.Exit(0)
	}()

	fmt.Println("Grace is ready. Type a message and press Enter (Ctrl-C to quit).")

	// Opening turn: empty message triggers the greeting.
	handleTurn(handler, roomID, userID, "")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		handleTurn(handler, roomID, userID, text)
	}
}

func handleTurn(handler observer.TurnHandler, roomID, userID, text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	handler.Handle(ctx, grace.IncomingMessage{
		ID:       grace.NewID(),
		RoomID:   roomID,
		EntityID: userID,
		Text:     text,
		Source:   "cli",
	}, func(c grace.Content) {
		fmt.Printf("\nGrace: %s\n\n", c.Text)
	})
}
