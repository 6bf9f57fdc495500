package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate 切到临时目录，避免读取仓库里的 .env 或 config.yaml
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Recommend.GenreWeight != 10 {
		t.Errorf("GenreWeight = %v, want 10", cfg.Recommend.GenreWeight)
	}
	if cfg.Search.MaxFeatures != 5000 {
		t.Errorf("MaxFeatures = %d, want 5000", cfg.Search.MaxFeatures)
	}
	if cfg.Index.Backend != "badger" {
		t.Errorf("Backend = %q, want badger", cfg.Index.Backend)
	}
	if cfg.Chat.MaxYear != 2000 {
		t.Errorf("MaxYear = %d, want 2000", cfg.Chat.MaxYear)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8088")
	t.Setenv("CINEVASION_RECOMMEND__GENRE_WEIGHT", "4.5")
	t.Setenv("CINEVASION_OLLAMA__TIMEOUT", "3s")
	t.Setenv("OLLAMA_MODEL", "mxbai-embed-large")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8088" {
		t.Errorf("Port = %q", cfg.Server.Port)
	}
	if cfg.Recommend.GenreWeight != 4.5 {
		t.Errorf("GenreWeight = %v", cfg.Recommend.GenreWeight)
	}
	if cfg.Ollama.Timeout != 3*time.Second {
		t.Errorf("Ollama.Timeout = %v", cfg.Ollama.Timeout)
	}
	if cfg.Ollama.Model != "mxbai-embed-large" {
		t.Errorf("Ollama.Model = %q", cfg.Ollama.Model)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := "recommend:\n  genre_weight: 2\nchat:\n  top_k: 8\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Recommend.GenreWeight != 2 || cfg.Chat.TopK != 8 {
		t.Errorf("file values not applied: %+v %+v", cfg.Recommend, cfg.Chat)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(c *Config) {}},
		{name: "zero genre weight", mutate: func(c *Config) { c.Recommend.GenreWeight = 0 }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Index.Backend = "chroma" }, wantErr: true},
		{name: "pgvector without url", mutate: func(c *Config) {
			c.Index.Backend = "pgvector"
			c.Index.DatabaseURL = ""
		}, wantErr: true},
		{name: "default secret in production", mutate: func(c *Config) { c.Env = "production" }, wantErr: true},
		{name: "max below default", mutate: func(c *Config) { c.Search.MaxCount = 1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
