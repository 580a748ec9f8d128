package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables.
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Completion CompletionConfig `mapstructure:"completion"`
	Templates  TemplatesConfig  `mapstructure:"templates"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Clamd      ClamdConfig      `mapstructure:"clamd"`
	Worker     WorkerConfig     `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port int `mapstructure:"port"`
	// AIRateLimit 为每个用户每分钟允许的 AI 请求数，0 表示不限制。
	AIRateLimit    int      `mapstructure:"ai_rate_limit"`
	MaxResumes     int      `mapstructure:"max_resumes"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// CompletionConfig describes the chat-completion endpoint used for every AI call.
// The token is not validated here; the completion client rejects a missing one at construction.
type CompletionConfig struct {
	APIToken          string        `mapstructure:"api_token"`
	Model             string        `mapstructure:"model"`
	URL               string        `mapstructure:"url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// TemplatesConfig 控制简历模板来源。Dir 为空时使用内置模板。
type TemplatesConfig struct {
	Dir string `mapstructure:"dir"`
}

// AuthConfig points at the RSA key pair used for access tokens.
type AuthConfig struct {
	PrivateKeyPath  string        `mapstructure:"private_key_path"`
	PublicKeyPath   string        `mapstructure:"public_key_path"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

// ClamdConfig 指向 clamd 守护进程，Address 为空时跳过病毒扫描。
type ClamdConfig struct {
	Address string `mapstructure:"address"`
}

// WorkerConfig contains asynq worker settings.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	// BrowserBin 为 Chromium 可执行文件路径，为空时由 rod 自动查找或下载。
	BrowserBin  string        `mapstructure:"browser_bin"`
	PDFTimeout  time.Duration `mapstructure:"pdf_timeout"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDatabase 只读取数据库配置，供不需要其他依赖的命令行工具使用。
// overrides 中的非零字段覆盖环境变量。
func LoadDatabase(overrides DatabaseConfig) (DatabaseConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return DatabaseConfig{}, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	d := cfg.Database
	if overrides.Host != "" {
		d.Host = overrides.Host
	}
	if overrides.Port > 0 {
		d.Port = overrides.Port
	}
	if overrides.Name != "" {
		d.Name = overrides.Name
	}
	if overrides.User != "" {
		d.User = overrides.User
	}
	if overrides.Password != "" {
		d.Password = overrides.Password
	}
	if overrides.SSLMode != "" {
		d.SSLMode = overrides.SSLMode
	}
	if err := validateDatabase(d); err != nil {
		return DatabaseConfig{}, err
	}
	return d, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.ai_rate_limit", 30)
	v.SetDefault("api.max_resumes", 20)
	v.SetDefault("api.allowed_origins", []string{})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "resumeghana")
	v.SetDefault("database.user", "resumeghana")
	v.SetDefault("database.password", "resumeghana")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "resumes")
	v.SetDefault("minio.bucket_lookup", "auto")
	v.SetDefault("minio.auto_create_bucket", true)
	v.SetDefault("completion.model", "Qwen/Qwen2.5-Coder-32B-Instruct")
	v.SetDefault("completion.url", "https://router.huggingface.co/v1/chat/completions")
	v.SetDefault("completion.timeout", 90*time.Second)
	v.SetDefault("completion.max_tokens", 2048)
	v.SetDefault("completion.requests_per_minute", 120)
	v.SetDefault("auth.public_key_path", "keys/jwt_public.pem")
	v.SetDefault("auth.private_key_path", "keys/jwt_private.pem")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.pdf_timeout", 30*time.Second)
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"api.port":                       "API_PORT",
		"api.ai_rate_limit":              "AI_RATE_LIMIT",
		"api.max_resumes":                "MAX_RESUMES_PER_USER",
		"api.allowed_origins":            "ALLOWED_ORIGINS",
		"database.host":                  "DATABASE_HOST",
		"database.port":                  "DATABASE_PORT",
		"database.name":                  "POSTGRES_DB",
		"database.user":                  "POSTGRES_USER",
		"database.password":              "POSTGRES_PASSWORD",
		"database.sslmode":               "DATABASE_SSLMODE",
		"redis.host":                     "REDIS_HOST",
		"redis.port":                     "REDIS_PORT",
		"minio.endpoint":                 "MINIO_ENDPOINT",
		"minio.public_endpoint":          "MINIO_PUBLIC_ENDPOINT",
		"minio.access_key_id":            "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key":        "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":                  "MINIO_USE_SSL",
		"minio.bucket":                   "MINIO_BUCKET",
		"minio.region":                   "MINIO_REGION",
		"minio.bucket_lookup":            "MINIO_BUCKET_LOOKUP",
		"minio.auto_create_bucket":       "MINIO_AUTO_CREATE_BUCKET",
		"completion.api_token":           "HF_API_TOKEN",
		"completion.model":               "HF_MODEL",
		"completion.url":                 "HF_API_URL",
		"completion.timeout":             "HF_TIMEOUT",
		"completion.max_tokens":          "HF_MAX_TOKENS",
		"completion.requests_per_minute": "HF_REQUESTS_PER_MINUTE",
		"templates.dir":                  "RESUME_TEMPLATES_DIR",
		"auth.private_key_path":          "JWT_PRIVATE_KEY_PATH",
		"auth.public_key_path":           "JWT_PUBLIC_KEY_PATH",
		"auth.access_token_ttl":          "JWT_ACCESS_TOKEN_TTL",
		"auth.refresh_token_ttl":         "JWT_REFRESH_TOKEN_TTL",
		"clamd.address":                  "CLAMD_ADDRESS",
		"worker.concurrency":             "WORKER_CONCURRENCY",
		"worker.browser_bin":             "ROD_BROWSER_BIN",
		"worker.pdf_timeout":             "PDF_TIMEOUT",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	if cfg.API.AIRateLimit < 0 {
		return errors.New("ai rate limit must not be negative")
	}
	if err := validateDatabase(cfg.Database); err != nil {
		return err
	}
	if cfg.Redis.Host == "" {
		return errors.New("redis host is required")
	}
	if cfg.Redis.Port <= 0 {
		return errors.New("redis port must be positive")
	}
	if cfg.MinIO.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if cfg.MinIO.AccessKeyID == "" {
		return errors.New("minio access key id is required")
	}
	if cfg.MinIO.SecretAccessKey == "" {
		return errors.New("minio secret access key is required")
	}
	if cfg.MinIO.Bucket == "" {
		return errors.New("minio bucket is required")
	}
	if cfg.Completion.URL == "" {
		return errors.New("completion url is required")
	}
	if cfg.Completion.Timeout <= 0 {
		return errors.New("completion timeout must be positive")
	}
	if cfg.Completion.MaxTokens <= 0 {
		return errors.New("completion max tokens must be positive")
	}
	if cfg.Auth.PublicKeyPath == "" {
		return errors.New("jwt public key path is required")
	}
	if cfg.Worker.Concurrency <= 0 {
		return errors.New("worker concurrency must be positive")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	switch {
	case d.Host == "":
		return errors.New("database host is required")
	case d.Port <= 0:
		return errors.New("database port must be positive")
	case d.Name == "":
		return errors.New("database name is required")
	case d.User == "":
		return errors.New("database user is required")
	case d.Password == "":
		return errors.New("database password is required")
	case d.SSLMode == "":
		return errors.New("database sslmode is required")
	}
	return nil
}
