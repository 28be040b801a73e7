package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_DRIVER", "INFERENCE_PROVIDER", "RAG_TIMEOUT", "CORS_ALLOWED_ORIGINS", "NATS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.StoreDriver != StoreMemory {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.InferenceProvider != "webhook" {
		t.Errorf("InferenceProvider = %q", cfg.InferenceProvider)
	}
	if cfg.RAGTimeout != 0 {
		t.Errorf("RAGTimeout = %v, want no timeout", cfg.RAGTimeout)
	}
	if cfg.NATSEnabled {
		t.Error("NATSEnabled should default to false")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("INFERENCE_PROVIDER", "OPENAI")
	t.Setenv("RAG_TIMEOUT", "45s")
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()

	if cfg.ServerPort != "9090" {
		t.Errorf("ServerPort = %q", cfg.ServerPort)
	}
	if cfg.StoreDriver != StorePostgres {
		t.Errorf("StoreDriver = %q", cfg.StoreDriver)
	}
	if cfg.InferenceProvider != "openai" {
		t.Errorf("InferenceProvider = %q", cfg.InferenceProvider)
	}
	if cfg.RAGTimeout != 45*time.Second {
		t.Errorf("RAGTimeout = %v", cfg.RAGTimeout)
	}
	if cfg.DBMaxOpenConns != 7 {
		t.Errorf("DBMaxOpenConns = %d", cfg.DBMaxOpenConns)
	}
	if !cfg.NATSEnabled {
		t.Error("NATSEnabled = false")
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != want[0] || cfg.CORSAllowedOrigins[1] != want[1] {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "lots")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	t.Setenv("TRACING_ENABLED", "maybe")

	cfg := Load()

	if cfg.RateLimitRequests != 60 {
		t.Errorf("RateLimitRequests = %d", cfg.RateLimitRequests)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Errorf("RateLimitWindow = %v", cfg.RateLimitWindow)
	}
	if cfg.TracingEnabled {
		t.Error("TracingEnabled = true")
	}
}
