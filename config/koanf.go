package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths 未设置 CONFIG_PATH 时依次查找的配置文件。
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/artrec/config.yaml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

// Load 按 默认值 → 配置文件 → 环境变量 的顺序加载配置并校验。
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// STORAGE_CONTAINER -> storage.container, LIMIT_DATA_SIZE -> dataset.limit_data_size
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// 环境变量只能给出字符串，这些路径按逗号拆分。
var stringSlicePaths = []string{"server.cors_origins"}
var int64SlicePaths = []string{"recommend.blacklist"}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range stringSlicePaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		if err := k.Set(path, splitComma(s)); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	for _, path := range int64SlicePaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := splitComma(s)
		ids := make([]int64, 0, len(parts))
		for _, p := range parts {
			id, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: invalid id %q", path, p)
			}
			ids = append(ids, id)
		}
		if err := k.Set(path, ids); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

func splitComma(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envMappings 环境变量（小写）→ 配置路径。未列出的变量被忽略。
var envMappings = map[string]string{
	// server
	"host":                    "server.host",
	"port":                    "server.port",
	"server_host":             "server.host",
	"server_port":             "server.port",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",
	"cors_origins":            "server.cors_origins",
	"rate_limit":              "server.rate_limit",

	// logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// storage
	"storage_backend":      "storage.backend",
	"storage_dir":          "storage.dir",
	"storage_base_url":     "storage.base_url",
	"storage_container":    "storage.container",
	"storage_query":        "storage.query",
	"storage_prefix":       "storage.prefix",
	"storage_cache":        "storage.cache",
	"storage_cache_ttl":    "storage.cache_ttl",
	"storage_http_timeout": "storage.http_timeout",
	"redis_addr":           "storage.redis_addr",
	"redis_db":             "storage.redis_db",
	"badger_path":          "storage.badger_path",

	// dataset
	"clicks_blob":        "dataset.clicks_blob",
	"articles_blob":      "dataset.articles_blob",
	"embeddings_blob":    "dataset.embeddings_blob",
	"embeddings_format":  "dataset.embeddings_format",
	"user_column":        "dataset.user_column",
	"article_column":     "dataset.article_column",
	"engagement_column":  "dataset.engagement_column",
	"limit_data_size":    "dataset.limit_data_size",
	"limit_users":        "dataset.limit_users",
	"interactions_dsn":   "dataset.interactions_dsn",
	"database_url":       "dataset.interactions_dsn",
	"interactions_query": "dataset.interactions_query",

	// recommend
	"recommend_batch_size":       "recommend.batch_size",
	"recommend_low_memory":       "recommend.low_memory",
	"recommend_default_n":        "recommend.default_n",
	"recommend_max_n":            "recommend.max_n",
	"recommend_unindexed_policy": "recommend.unindexed_policy",
	"recommend_article_filter":   "recommend.article_filter",
	"recommend_blacklist":        "recommend.blacklist",
	"recommend_blacklist_key":    "recommend.blacklist_key",
	"recommend_load_on_startup":  "recommend.load_on_startup",
	"recommend_load_timeout":     "recommend.load_timeout",
	"recommend_pipeline_file":    "recommend.pipeline_file",
}

func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
