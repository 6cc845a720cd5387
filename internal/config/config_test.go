package config

import (
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
}

func TestLoadLocalDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.UseDB() {
		t.Fatal("no DB_HOST set, expected in-memory store")
	}
	if cfg.Followup.DefaultSLA != 6*time.Hour {
		t.Fatalf("default SLA = %v", cfg.Followup.DefaultSLA)
	}
	if cfg.Model.BaseURL != "https://api.openai.com/v1" || cfg.Model.Timeout != 10*time.Second {
		t.Fatalf("model defaults = %+v", cfg.Model)
	}
	if cfg.Graph.BaseURL != "https://graph.facebook.com/v20.0" {
		t.Fatalf("graph base url = %s", cfg.Graph.BaseURL)
	}
	if cfg.RedisAddr() != "localhost:6379" {
		t.Fatalf("redis addr = %s", cfg.RedisAddr())
	}
	if cfg.InternalURL() != "http://localhost:8080" {
		t.Fatalf("internal url = %s", cfg.InternalURL())
	}
}

func TestLoadFollowupOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FOLLOWUP_SLA", "3h")
	t.Setenv("FOLLOWUP_DEBUG", "30s")
	t.Setenv("CLEAR_OVERDUE_ON_REPLY", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.Followup.DefaultSLA != 3*time.Hour || cfg.Followup.DebugOverride != 30*time.Second {
		t.Fatalf("followup = %+v", cfg.Followup)
	}
	if !cfg.Followup.ClearOverdueOnReply {
		t.Fatal("clear-on-reply flag not set")
	}
}

func TestProductionRequiresSecrets(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	if err == nil {
		t.Fatal("expected production validation to fail")
	}
	for _, want := range []string{"DB_HOST", "META_APP_SECRET", "INTERNAL_SECRET", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error missing %s: %v", want, err)
		}
	}
}

func TestDBBlockValidated(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "leadinbox")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !cfg.UseDB() {
		t.Fatal("expected DB mode")
	}
	if cfg.DB.SSLMode != "disable" {
		t.Fatalf("sslmode default = %q", cfg.DB.SSLMode)
	}
	if !strings.Contains(cfg.PostgresDSN(), "dbname=leadinbox") {
		t.Fatalf("dsn = %s", cfg.PostgresDSN())
	}

	t.Setenv("DB_USER", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "DB_USER") {
		t.Fatalf("expected DB_USER error, got %v", err)
	}
}

func TestInvalidEnvRejected(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "qa")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "APP_ENV") {
		t.Fatalf("expected APP_ENV error, got %v", err)
	}
}
