package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func withCleanConfigPath(t *testing.T) {
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
	t.Setenv(ConfigPathEnvVar, "")
}

func TestDefaultConfigValid(t *testing.T) {
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	withCleanConfigPath(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Recommend.DefaultN != 5 || cfg.Recommend.BatchSize != 1000 {
		t.Errorf("recommend defaults = %+v", cfg.Recommend)
	}
	if cfg.Dataset.LimitUsers != 500 || cfg.Dataset.LimitDataSize {
		t.Errorf("dataset limit defaults = %d %v", cfg.Dataset.LimitUsers, cfg.Dataset.LimitDataSize)
	}
	if cfg.Dataset.EffectiveLimitUsers() != 0 {
		t.Errorf("limit should be off by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	withCleanConfigPath(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_CONTAINER", "mind")
	t.Setenv("LIMIT_DATA_SIZE", "true")
	t.Setenv("LIMIT_USERS", "50")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("RECOMMEND_BLACKLIST", "3, 7")
	t.Setenv("STORAGE_CACHE_TTL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %s", cfg.Logging.Level)
	}
	if cfg.Storage.Container != "mind" {
		t.Errorf("container = %s", cfg.Storage.Container)
	}
	if got := cfg.Dataset.EffectiveLimitUsers(); got != 50 {
		t.Errorf("effective limit = %d, want 50", got)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.example" {
		t.Errorf("cors = %v", cfg.Server.CORSOrigins)
	}
	if len(cfg.Recommend.Blacklist) != 2 || cfg.Recommend.Blacklist[1] != 7 {
		t.Errorf("blacklist = %v", cfg.Recommend.Blacklist)
	}
	if cfg.Storage.CacheTTL != time.Hour {
		t.Errorf("cache ttl = %v", cfg.Storage.CacheTTL)
	}
}

func TestLoadFile(t *testing.T) {
	withCleanConfigPath(t)
	path := filepath.Join(t.TempDir(), "artrec.yaml")
	content := `
server:
  port: 7000
recommend:
  default_n: 10
  unindexed_policy: strict
  low_memory: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7000 || cfg.Recommend.DefaultN != 10 {
		t.Errorf("file values not applied: %+v %+v", cfg.Server, cfg.Recommend)
	}
	if cfg.Recommend.UnindexedPolicy != "strict" || !cfg.Recommend.LowMemory {
		t.Errorf("recommend = %+v", cfg.Recommend)
	}
	// 未在文件中出现的字段保持默认
	if cfg.Recommend.BatchSize != 1000 {
		t.Errorf("batch size = %d", cfg.Recommend.BatchSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"http without base url", func(c *Config) { c.Storage.Backend = "http" }},
		{"redis without addr", func(c *Config) { c.Storage.Backend = "redis" }},
		{"redis cache without addr", func(c *Config) { c.Storage.Cache = "redis" }},
		{"badger backend without path", func(c *Config) { c.Storage.Backend = "badger" }},
		{"badger cache without path", func(c *Config) { c.Storage.Cache = "badger" }},
		{"bad policy", func(c *Config) { c.Recommend.UnindexedPolicy = "ignore" }},
		{"zero batch", func(c *Config) { c.Recommend.BatchSize = 0 }},
		{"max below default", func(c *Config) { c.Recommend.MaxN = 2 }},
		{"bad embeddings format", func(c *Config) { c.Dataset.EmbeddingsFormat = "parquet" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8081}
	if got := s.Addr(); got != "127.0.0.1:8081" {
		t.Errorf("Addr = %s", got)
	}
}
