package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	v, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.Ranking.TopK != 5 {
		t.Errorf("expected top_k 5, got %d", cfg.Ranking.TopK)
	}
	if cfg.Ranking.ExcerptMaxChars != 2000 {
		t.Errorf("expected excerpt_max_chars 2000, got %d", cfg.Ranking.ExcerptMaxChars)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected job_ttl 1h, got %v", cfg.JobTTL)
	}
	if cfg.Embedding.Provider != "hash" || cfg.Embedding.Dimension != 384 {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback on by default")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("DOCSIFT_PORT", "9100")
	t.Setenv("DOCSIFT_RANKING_TOP_K", "3")
	t.Setenv("DOCSIFT_EMBEDDING_TIMEOUT", "5s")

	v, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9100" {
		t.Errorf("expected port 9100, got %q", cfg.Port)
	}
	if cfg.Ranking.TopK != 3 {
		t.Errorf("expected top_k 3, got %d", cfg.Ranking.TopK)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Embedding.Timeout)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docsift.yaml")
	body := "classifier:\n  type: rules\n  body_font_size: 10\nembedding:\n  provider: ollama\n  model: nomic-embed-text\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	v, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Classifier.Type != "rules" || cfg.Classifier.BodyFontSize != 10 {
		t.Errorf("unexpected classifier config: %+v", cfg.Classifier)
	}
	if cfg.Embedding.Provider != "ollama" || cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
}

func TestMissingConfigFile(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.Embedding.Provider = "bert" }},
		{"zero top k", func(c *Config) { c.Ranking.TopK = 0 }},
		{"bad classifier", func(c *Config) { c.Classifier.Type = "svm" }},
		{"artifact without path", func(c *Config) { c.Classifier.ArtifactPath = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"non-numeric port", func(c *Config) { c.Port = "http" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := New("")
			cfg, err := Load(v)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
