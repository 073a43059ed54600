package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config 是推荐服务的应用配置。
//
// 加载顺序（后者覆盖前者）：结构体默认值 → YAML 文件（CONFIG_PATH / config.yaml）→ 环境变量。
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Storage   StorageConfig   `koanf:"storage"`
	Dataset   DatasetConfig   `koanf:"dataset"`
	Recommend RecommendConfig `koanf:"recommend"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// RateLimit 每个客户端 IP 每分钟请求数，0 表示不限流
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// StorageConfig 描述数据集 blob 的来源与可选的本地缓存。
type StorageConfig struct {
	// Backend: dir（本地目录）| http（HTTP 容器）| redis | badger | memory
	Backend   string `koanf:"backend" validate:"oneof=dir http redis badger memory"`
	Dir       string `koanf:"dir"`
	BaseURL   string `koanf:"base_url" validate:"omitempty,url"`
	Container string `koanf:"container"`
	// Query 追加到 HTTP 请求的查询串（例如 SAS token）
	Query string `koanf:"query"`
	// Prefix 是 redis/badger/memory 中 blob key 的前缀
	Prefix string `koanf:"prefix"`

	RedisAddr  string `koanf:"redis_addr"`
	RedisDB    int    `koanf:"redis_db" validate:"gte=0"`
	BadgerPath string `koanf:"badger_path" validate:"required_if=Backend badger,required_if=Cache badger"`

	// Cache 远端 blob 的读穿缓存：空 | memory | redis | badger
	Cache    string        `koanf:"cache" validate:"omitempty,oneof=memory redis badger"`
	CacheTTL time.Duration `koanf:"cache_ttl" validate:"gte=0"`

	HTTPTimeout time.Duration `koanf:"http_timeout" validate:"gte=0"`
}

type DatasetConfig struct {
	ClicksBlob       string `koanf:"clicks_blob" validate:"required"`
	ArticlesBlob     string `koanf:"articles_blob" validate:"required"`
	EmbeddingsBlob   string `koanf:"embeddings_blob" validate:"required"`
	EmbeddingsFormat string `koanf:"embeddings_format" validate:"omitempty,oneof=json csv matrix"`

	UserColumn       string `koanf:"user_column"`
	ArticleColumn    string `koanf:"article_column"`
	EngagementColumn string `koanf:"engagement_column"`

	// LimitDataSize 为 true 时只保留最活跃的 LimitUsers 个用户
	LimitDataSize bool `koanf:"limit_data_size"`
	LimitUsers    int  `koanf:"limit_users" validate:"gte=0"`

	// InteractionsDSN 非空时从 Postgres 读取交互记录，代替 ClicksBlob
	InteractionsDSN   string `koanf:"interactions_dsn"`
	InteractionsQuery string `koanf:"interactions_query"`
}

type RecommendConfig struct {
	BatchSize int  `koanf:"batch_size" validate:"min=1"`
	LowMemory bool `koanf:"low_memory"`
	DefaultN  int  `koanf:"default_n" validate:"min=1"`
	MaxN      int  `koanf:"max_n" validate:"min=1"`

	UnindexedPolicy string `koanf:"unindexed_policy" validate:"oneof=lenient strict"`

	// ArticleFilter 是文章可推荐条件（CEL），为空表示全部可推荐
	ArticleFilter string  `koanf:"article_filter"`
	Blacklist     []int64 `koanf:"blacklist"`
	BlacklistKey  string  `koanf:"blacklist_key"`

	LoadOnStartup bool          `koanf:"load_on_startup"`
	LoadTimeout   time.Duration `koanf:"load_timeout" validate:"gte=0"`
	PipelineFile  string        `koanf:"pipeline_file"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			Backend:     "dir",
			Dir:         "data",
			Container:   "data",
			CacheTTL:    24 * time.Hour,
			HTTPTimeout: 5 * time.Minute,
		},
		Dataset: DatasetConfig{
			ClicksBlob:     "clicks.csv",
			ArticlesBlob:   "articles_metadata.csv",
			EmbeddingsBlob: "articles_embeddings.json",
			LimitUsers:     500,
		},
		Recommend: RecommendConfig{
			BatchSize:       1000,
			DefaultN:        5,
			MaxN:            100,
			UnindexedPolicy: "lenient",
			LoadOnStartup:   true,
			LoadTimeout:     10 * time.Minute,
		},
	}
}

// Validate 校验字段取值与字段之间的约束。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "http":
		if c.Storage.BaseURL == "" {
			return fmt.Errorf("storage.base_url is required for http backend")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for redis backend")
		}
	}
	if c.Storage.Cache == "redis" && c.Storage.RedisAddr == "" {
		return fmt.Errorf("storage.redis_addr is required for redis cache")
	}
	// 内存模式的 badger 放不下超过 1 MiB 的 blob
	if (c.Storage.Backend == "badger" || c.Storage.Cache == "badger") && c.Storage.BadgerPath == "" {
		return fmt.Errorf("storage.badger_path is required for badger backend or cache")
	}
	if c.Recommend.MaxN < c.Recommend.DefaultN {
		return fmt.Errorf("recommend.max_n (%d) must be >= recommend.default_n (%d)", c.Recommend.MaxN, c.Recommend.DefaultN)
	}
	return nil
}

// Addr 返回 HTTP 监听地址。
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EffectiveLimitUsers 返回生效的用户上限，0 表示不限。
func (d DatasetConfig) EffectiveLimitUsers() int {
	if !d.LimitDataSize {
		return 0
	}
	return d.LimitUsers
}
