package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AnabVangun/publicLegiCrawler/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(databaseDSNEnv, "")
	t.Setenv(clientIDEnv, "")
	t.Setenv(clientSecretEnv, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Legifrance.QuotaLimit != 100 {
		t.Fatalf("expected default quota limit 100, got %d", cfg.Legifrance.QuotaLimit)
	}
	if cfg.Legifrance.Period() != time.Minute {
		t.Fatalf("expected default quota period 1m, got %v", cfg.Legifrance.Period())
	}
	if len(cfg.Jobs) != 1 || cfg.Jobs[0].Kind != domain.KindTableauAvancement {
		t.Fatalf("expected the default tableaux job, got %+v", cfg.Jobs)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: debug
database:
  dsn: postgres://file/db
legifrance:
  quotaLimit: 10
  quotaPeriodSeconds: 30
jobs:
  - name: custom
    kind: tableau_avancement
    query:
      fond: JORF
      natures: [ARRETE, DECRET]
      keywords: avancement
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env/db")
	t.Setenv(clientIDEnv, "env-id")
	t.Setenv(clientSecretEnv, "env-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected file logging level, got %q", cfg.Logging.Level)
	}
	if cfg.Database.DSN != "postgres://env/db" {
		t.Fatalf("env must override file DSN, got %q", cfg.Database.DSN)
	}
	if cfg.Legifrance.ClientID != "env-id" || cfg.Legifrance.ClientSecret != "env-secret" {
		t.Fatalf("credentials must come from the environment")
	}
	if cfg.Legifrance.Period() != 30*time.Second {
		t.Fatalf("expected 30s quota period, got %v", cfg.Legifrance.Period())
	}
	if len(cfg.Jobs) != 1 || cfg.Jobs[0].Name != "custom" || len(cfg.Jobs[0].Query.Natures) != 2 {
		t.Fatalf("unexpected jobs: %+v", cfg.Jobs)
	}
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a missing config file")
	}
}
