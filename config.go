package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv    string `yaml:"appEnv"`
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	StoreDriver string `yaml:"storeDriver"` // mongo | memory
	MongoURI    string `yaml:"mongoURI"`
	MongoDB     string `yaml:"mongoDB"`

	JWTSecret      string        `yaml:"jwtSecret"`
	CORSOrigins    []string      `yaml:"corsOrigins"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	UploadDir          string `yaml:"uploadDir"`
	UploadPublicPrefix string `yaml:"uploadPublicPrefix"`
	MaxUploadBytes     int64  `yaml:"maxUploadBytes"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
	MinioPublicURL string `yaml:"minioPublicURL"`

	RedisAddr          string `yaml:"redisAddr"`
	RedisPassword      string `yaml:"redisPassword"`
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute"`

	// PermissiveDiseaseAppend lets any user append diseases to any record.
	PermissiveDiseaseAppend bool `yaml:"permissiveDiseaseAppend"`
}

func (c Config) isDevelopment() bool { return c.AppEnv == "development" }

func defaultConfig() Config {
	return Config{
		AppEnv:             "production",
		Port:               "5000",
		LogLevel:           "info",
		LogFormat:          "json",
		StoreDriver:        "mongo",
		MongoURI:           "mongodb://localhost:27017/?replicaSet=rs0",
		MongoDB:            "sanfish",
		CORSOrigins:        []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		RequestTimeout:     10 * time.Second,
		UploadDir:          "uploads",
		UploadPublicPrefix: "/uploads",
		MaxUploadBytes:     5 << 20,
		MinioBucket:        "sanfish",
		RateLimitPerMinute: 60,
	}
}

// loadConfig layers defaults, the optional CONFIG_FILE yaml and the
// environment (a .env file is read first when present).
func loadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) error {
	cfg.AppEnv = getenv("APP_ENV", cfg.AppEnv)
	cfg.Port = getenv("PORT", cfg.Port)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
	cfg.StoreDriver = strings.ToLower(getenv("STORE_DRIVER", cfg.StoreDriver))
	cfg.MongoURI = getenv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDB = getenv("MONGO_DB", cfg.MongoDB)
	cfg.JWTSecret = getenv("JWT_SECRET", cfg.JWTSecret)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	cfg.UploadDir = getenv("UPLOAD_DIR", cfg.UploadDir)
	cfg.UploadPublicPrefix = getenv("UPLOAD_PUBLIC_PREFIX", cfg.UploadPublicPrefix)
	cfg.MinioEndpoint = getenv("MINIO_ENDPOINT", cfg.MinioEndpoint)
	cfg.MinioAccessKey = getenv("MINIO_ACCESS_KEY", cfg.MinioAccessKey)
	cfg.MinioSecretKey = getenv("MINIO_SECRET_KEY", cfg.MinioSecretKey)
	cfg.MinioBucket = getenv("MINIO_BUCKET", cfg.MinioBucket)
	cfg.MinioPublicURL = getenv("MINIO_PUBLIC_URL", cfg.MinioPublicURL)
	cfg.RedisAddr = getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getenv("REDIS_PASSWORD", cfg.RedisPassword)

	var err error
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if cfg.RequestTimeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if cfg.MaxUploadBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if cfg.RateLimitPerMinute, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("RATE_LIMIT_PER_MINUTE: %w", err)
		}
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if cfg.MinioUseSSL, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("MINIO_USE_SSL: %w", err)
		}
	}
	if v := os.Getenv("PERMISSIVE_DISEASE_APPEND"); v != "" {
		if cfg.PermissiveDiseaseAppend, err = strconv.ParseBool(v); err != nil {
			return fmt.Errorf("PERMISSIVE_DISEASE_APPEND: %w", err)
		}
	}
	return nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want mongo or memory)", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		if !c.isDevelopment() {
			return errors.New("JWT_SECRET is required outside development")
		}
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func splitCSV(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
