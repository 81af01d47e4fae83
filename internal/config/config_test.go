package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grace.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))

	if cfg.LLM.Provider != "openai" || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("unexpected LLM defaults: %+v", cfg.LLM)
	}
	if cfg.LLM.BaseURL != "https://api.openai.com/v1" {
		t.Errorf("unexpected base URL: %q", cfg.LLM.BaseURL)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "grace.db" {
		t.Errorf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Agent.Table != "memories" {
		t.Errorf("unexpected table: %q", cfg.Agent.Table)
	}
	if cfg.Observer.Enabled {
		t.Error("observer should be off by default")
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	path := writeTOML(t, `
[agent]
id = "grace-1"
table = "conversations"

[llm]
model = "gpt-4o"
api_key = "sk-test"

[extractor]
model = "gpt-4o-mini"

[database]
driver = "postgres"
postgres_url = "postgres://localhost/grace"

[observer]
enabled = true

[observer.pricing."gpt-4o"]
input = 2.5
output = 10.0
`)
	cfg := Load(path)

	if cfg.Agent.ID != "grace-1" || cfg.Agent.Table != "conversations" {
		t.Errorf("unexpected agent config: %+v", cfg.Agent)
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("unexpected LLM config: %+v", cfg.LLM)
	}
	if cfg.Extractor.Model != "gpt-4o-mini" {
		t.Errorf("unexpected extractor model: %q", cfg.Extractor.Model)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.PostgresURL != "postgres://localhost/grace" {
		t.Errorf("unexpected database config: %+v", cfg.Database)
	}
	if !cfg.Observer.Enabled {
		t.Error("observer should be enabled")
	}
	if p := cfg.Observer.Pricing["gpt-4o"]; p.Input != 2.5 || p.Output != 10.0 {
		t.Errorf("unexpected pricing: %+v", p)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTOML(t, `
[llm]
model = "gpt-4o"
api_key = "sk-from-file"
`)
	t.Setenv("GRACE_LLM_API_KEY", "sk-from-env")
	t.Setenv("GRACE_LLM_MODEL", "gpt-5-mini")

	cfg := Load(path)
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("env should win over file, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-5-mini" {
		t.Errorf("env should win over file, got %q", cfg.LLM.Model)
	}
}

func TestLoad_PostgresURLEnvSwitchesDriver(t *testing.T) {
	t.Setenv("GRACE_POSTGRES_URL", "postgres://localhost/grace")

	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if cfg.Database.Driver != "postgres" {
		t.Errorf("postgres URL env should switch the driver, got %q", cfg.Database.Driver)
	}
	if cfg.Database.PostgresURL != "postgres://localhost/grace" {
		t.Errorf("unexpected URL: %q", cfg.Database.PostgresURL)
	}
}

func TestLoad_ObserverEnabledEnv(t *testing.T) {
	t.Setenv("GRACE_OBSERVER_ENABLED", "1")

	cfg := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !cfg.Observer.Enabled {
		t.Error("GRACE_OBSERVER_ENABLED=1 should enable the observer")
	}
}

func TestLoad_ExtractorAPIKeyEnv(t *testing.T) {
	path := writeTOML(t, `
[llm]
api_key = "sk-main"

[extractor]
model = "gpt-4o-mini"
`)
	t.Setenv("GRACE_EXTRACTOR_API_KEY", "sk-extractor")

	cfg := Load(path)
	if cfg.Extractor.APIKey != "sk-extractor" {
		t.Errorf("env should set the extractor key, got %q", cfg.Extractor.APIKey)
	}
	if cfg.LLM.APIKey != "sk-main" {
		t.Errorf("LLM key should be untouched, got %q", cfg.LLM.APIKey)
	}
}

func TestLoad_ExtractorFallsBackToLLM(t *testing.T) {
	path := writeTOML(t, `
[llm]
model = "gpt-4o"
api_key = "sk-test"
`)
	cfg := Load(path)

	if cfg.Extractor.Model != "gpt-4o" {
		t.Errorf("extractor model should fall back to LLM model, got %q", cfg.Extractor.Model)
	}
	if cfg.Extractor.APIKey != "sk-test" {
		t.Errorf("extractor key should fall back to LLM key, got %q", cfg.Extractor.APIKey)
	}
}
