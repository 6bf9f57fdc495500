package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config 应用配置
type Config struct {
	Env       string          `koanf:"env" validate:"oneof=development production test"`
	AppSecret string          `koanf:"app_secret" validate:"required,min=16"`
	SiteName  string          `koanf:"site_name"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Recommend RecommendConfig `koanf:"recommend"`
	Search    SearchConfig    `koanf:"search"`
	Index     IndexConfig     `koanf:"index"`
	Ollama    OllamaConfig    `koanf:"ollama"`
	Gemini    GeminiConfig    `koanf:"gemini"`
	Chat      ChatConfig      `koanf:"chat"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required,numeric"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"gt=0"`
	CORSOrigins  []string      `koanf:"cors_origins"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// CatalogConfig 目录 CSV 文件位置
type CatalogConfig struct {
	Dir        string `koanf:"dir" validate:"required"`
	FilmsFile  string `koanf:"films_file" validate:"required"`
	PeopleFile string `koanf:"people_file" validate:"required"`
	LinksFile  string `koanf:"links_file" validate:"required"`
}

// RecommendConfig 推荐配置
type RecommendConfig struct {
	GenreWeight  float64       `koanf:"genre_weight" validate:"gt=0"`
	DefaultCount int           `koanf:"default_count" validate:"min=1"`
	MaxCount     int           `koanf:"max_count" validate:"gtefield=DefaultCount"`
	CacheTTL     time.Duration `koanf:"cache_ttl" validate:"gte=0"`
}

// SearchConfig 搜索配置
type SearchConfig struct {
	MaxFeatures  int           `koanf:"max_features" validate:"min=1"`
	DefaultCount int           `koanf:"default_count" validate:"min=1"`
	MaxCount     int           `koanf:"max_count" validate:"gtefield=DefaultCount"`
	CacheSize    int           `koanf:"cache_size" validate:"min=1"`
	CacheTTL     time.Duration `koanf:"cache_ttl" validate:"gt=0"`
}

// IndexConfig 向量索引配置
type IndexConfig struct {
	Backend     string `koanf:"backend" validate:"oneof=badger pgvector"`
	Dir         string `koanf:"dir" validate:"required_if=Backend badger"`
	DatabaseURL string `koanf:"database_url" validate:"required_if=Backend pgvector"`
	BatchSize   int    `koanf:"batch_size" validate:"min=1,max=512"`
	WarmOnStart bool   `koanf:"warm_on_start"`

	RecheckInterval time.Duration `koanf:"recheck_interval" validate:"gte=0"`
}

// OllamaConfig 向量化服务
type OllamaConfig struct {
	Host    string        `koanf:"host" validate:"required,url"`
	Model   string        `koanf:"model" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// GeminiConfig 文本生成服务
type GeminiConfig struct {
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	Model       string        `koanf:"model" validate:"required"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	Temperature float64       `koanf:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `koanf:"max_tokens" validate:"min=1"`
}

// ChatConfig 聊天助手配置
type ChatConfig struct {
	TopK          int     `koanf:"top_k" validate:"min=1,max=50"`
	MaxYear       int     `koanf:"max_year" validate:"gte=0"`
	HistorySize   int     `koanf:"history_size" validate:"gte=0,max=20"`
	RatePerMinute float64 `koanf:"rate_per_minute" validate:"gt=0"`
	Burst         int     `koanf:"burst" validate:"min=1"`
}

// ConfigPathEnvVar 指定配置文件路径的环境变量
const ConfigPathEnvVar = "CONFIG_PATH"

// EnvPrefix 通用环境变量前缀，CINEVASION_RECOMMEND__GENRE_WEIGHT -> recommend.genre_weight
const EnvPrefix = "CINEVASION_"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

// envAliases 常用环境变量到配置路径的映射
var envAliases = map[string]string{
	"APP_ENV":        "env",
	"APP_SECRET":     "app_secret",
	"SITE_NAME":      "site_name",
	"PORT":           "server.port",
	"CORS_ORIGINS":   "server.cors_origins",
	"LOG_LEVEL":      "log.level",
	"LOG_FORMAT":     "log.format",
	"CATALOG_DIR":    "catalog.dir",
	"INDEX_BACKEND":  "index.backend",
	"INDEX_DIR":      "index.dir",
	"DATABASE_URL":   "index.database_url",
	"OLLAMA_HOST":    "ollama.host",
	"OLLAMA_MODEL":   "ollama.model",
	"GEMINI_API_KEY": "gemini.api_key",
	"GEMINI_MODEL":   "gemini.model",
}

// defaultConfig 默认配置，之后依次被配置文件和环境变量覆盖
func defaultConfig() *Config {
	return &Config{
		Env:       "development",
		AppSecret: "your-secret-key-change-in-production",
		SiteName:  "Cinevasion",
		Server: ServerConfig{
			Port:         "5005",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Catalog: CatalogConfig{
			Dir:        "csv",
			FilmsFile:  "films_def.csv",
			PeopleFile: "intervenants_def.csv",
			LinksFile:  "lien_def.csv",
		},
		Recommend: RecommendConfig{
			GenreWeight:  10,
			DefaultCount: 5,
			MaxCount:     50,
			CacheTTL:     time.Hour,
		},
		Search: SearchConfig{
			MaxFeatures:  5000,
			DefaultCount: 5,
			MaxCount:     50,
			CacheSize:    1000,
			CacheTTL:     10 * time.Minute,
		},
		Index: IndexConfig{
			Backend:     "badger",
			Dir:         "./data/film_index",
			DatabaseURL: databaseURLFromParts(),
			BatchSize:   32,
			WarmOnStart: true,

			RecheckInterval: 5 * time.Minute,
		},
		Ollama: OllamaConfig{
			Host:    "http://localhost:11434",
			Model:   "nomic-embed-text",
			Timeout: 20 * time.Second,
		},
		Gemini: GeminiConfig{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			Model:       "gemini-2.0-flash",
			Timeout:     30 * time.Second,
			Temperature: 0.7,
			MaxTokens:   500,
		},
		Chat: ChatConfig{
			TopK:          5,
			MaxYear:       2000,
			HistorySize:   6,
			RatePerMinute: 20,
			Burst:         5,
		},
	}
}

// Load 加载配置：.env -> 默认值 -> 配置文件 -> 环境变量，最后校验
func Load() (*Config, error) {
	// .env 不存在时直接使用系统环境变量
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Env == "production" && c.AppSecret == defaultConfig().AppSecret {
		return fmt.Errorf("invalid configuration: APP_SECRET must be set in production")
	}
	return nil
}

// envTransform 把环境变量名转换为 koanf 路径，返回空串表示忽略
func envTransform(key string) string {
	if path, ok := envAliases[key]; ok {
		return path
	}
	if !strings.HasPrefix(key, EnvPrefix) {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(key, "__", "."))
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// databaseURLFromParts 兼容 DB_* 分散配置
func databaseURLFromParts() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "cinevasion"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
