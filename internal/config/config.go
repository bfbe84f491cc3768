package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type MonitoringServiceConfig struct {
	Port        string         `yaml:"port"`
	PageSize    int            `yaml:"page_size"`
	LogCfg      LogConfig      `yaml:"log"`
	PostgresCfg PostgresConfig `yaml:"postgres"`
	RabbitMQCfg RabbitMQConfig `yaml:"rabbitmq"`
	RedisCfg    RedisConfig    `yaml:"redis"`
	MinioCfg    MinioConfig    `yaml:"minio"`
	JWTCfg      JWTConfig      `yaml:"jwt"`
	WorkerCfg   WorkerConfig   `yaml:"worker"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

type MinioConfig struct {
	MinioURL       string        `yaml:"url"`
	MinioAccessKey string        `yaml:"access_key"`
	MinioSecretKey string        `yaml:"secret_key"`
	MinioLocation  string        `yaml:"location"`
	MinioSecure    bool          `yaml:"secure"`
	PresignExpiry  time.Duration `yaml:"presign_expiry"`
}

type PostgresConfig struct {
	DBname       string `yaml:"dbname"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	SSLMode      string `yaml:"sslmode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RabbitMQConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
}

type RedisConfig struct {
	Host     string        `yaml:"host"`
	Port     string        `yaml:"port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	StatsTTL time.Duration `yaml:"stats_ttl"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`

	// Registrations with this email are granted the admin role.
	BootstrapAdminEmail string `yaml:"bootstrap_admin_email"`
}

type WorkerConfig struct {
	NumWorkers         int           `yaml:"num_workers"`
	QueueSize          int           `yaml:"queue_size"`
	PredictionInterval time.Duration `yaml:"prediction_interval"`
}

// New builds the configuration from defaults, an optional YAML file (CONFIG_FILE) and the environment,
// in that order of precedence. A .env file in the working directory is loaded first if present.
func New() *MonitoringServiceConfig {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			slog.Warn("failed to load config file, using defaults", "path", path, "error", err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func defaults() *MonitoringServiceConfig {
	return &MonitoringServiceConfig{
		Port:     "8080",
		PageSize: 50,
		LogCfg: LogConfig{
			Level: "info",
			Dir:   "",
		},
		PostgresCfg: PostgresConfig{
			DBname:       "environmental_monitoring",
			Username:     "postgres",
			Password:     "postgres",
			Host:         "localhost",
			Port:         "5432",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		RabbitMQCfg: RabbitMQConfig{
			Username: "admin",
			Password: "admin",
			Host:     "localhost",
			Port:     "5672",
		},
		RedisCfg: RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			Password: "",
			DB:       0,
			StatsTTL: 5 * time.Minute,
		},
		MinioCfg: MinioConfig{
			MinioURL:       "http://localhost:9000",
			MinioAccessKey: "minio",
			MinioSecretKey: "minio123",
			MinioLocation:  "us-east-1",
			MinioSecure:    false,
			PresignExpiry:  15 * time.Minute,
		},
		JWTCfg: JWTConfig{
			Secret: "change-me",
			Expiry: 24 * time.Hour,
		},
		WorkerCfg: WorkerConfig{
			NumWorkers:         4,
			QueueSize:          100,
			PredictionInterval: 24 * time.Hour,
		},
	}
}

// LoadFile overlays values from a YAML file. Keys missing from the file keep their current value.
func (c *MonitoringServiceConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *MonitoringServiceConfig) applyEnv() {
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.PageSize = getEnvIntOrDefault("PAGE_SIZE", c.PageSize)
	c.LogCfg.Level = getEnvOrDefault("LOG_LEVEL", c.LogCfg.Level)
	c.LogCfg.Dir = getEnvOrDefault("LOG_DIR", c.LogCfg.Dir)

	c.PostgresCfg.DBname = getEnvOrDefault("POSTGRES_DB", c.PostgresCfg.DBname)
	c.PostgresCfg.Username = getEnvOrDefault("POSTGRES_USER", c.PostgresCfg.Username)
	c.PostgresCfg.Password = getEnvOrDefault("POSTGRES_PASSWORD", c.PostgresCfg.Password)
	c.PostgresCfg.Host = getEnvOrDefault("POSTGRES_HOST", c.PostgresCfg.Host)
	c.PostgresCfg.Port = getEnvOrDefault("POSTGRES_PORT", c.PostgresCfg.Port)
	c.PostgresCfg.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", c.PostgresCfg.SSLMode)
	c.PostgresCfg.MaxOpenConns = getEnvIntOrDefault("POSTGRES_MAX_OPEN_CONNS", c.PostgresCfg.MaxOpenConns)
	c.PostgresCfg.MaxIdleConns = getEnvIntOrDefault("POSTGRES_MAX_IDLE_CONNS", c.PostgresCfg.MaxIdleConns)

	c.RabbitMQCfg.Username = getEnvOrDefault("RABBITMQ_USER", c.RabbitMQCfg.Username)
	c.RabbitMQCfg.Password = getEnvOrDefault("RABBITMQ_PWD", c.RabbitMQCfg.Password)
	c.RabbitMQCfg.Host = getEnvOrDefault("RABBITMQ_HOST", c.RabbitMQCfg.Host)
	c.RabbitMQCfg.Port = getEnvOrDefault("RABBITMQ_PORT", c.RabbitMQCfg.Port)

	c.RedisCfg.Host = getEnvOrDefault("REDIS_HOST", c.RedisCfg.Host)
	c.RedisCfg.Port = getEnvOrDefault("REDIS_PORT", c.RedisCfg.Port)
	c.RedisCfg.Password = getEnvOrDefault("REDIS_PASSWORD", c.RedisCfg.Password)
	c.RedisCfg.DB = getEnvIntOrDefault("REDIS_DB", c.RedisCfg.DB)
	c.RedisCfg.StatsTTL = getEnvDurationOrDefault("REDIS_STATS_TTL", c.RedisCfg.StatsTTL)

	c.MinioCfg.MinioURL = getEnvOrDefault("MINIO_ENDPOINT", c.MinioCfg.MinioURL)
	c.MinioCfg.MinioAccessKey = getEnvOrDefault("MINIO_ACCESS_KEY", c.MinioCfg.MinioAccessKey)
	c.MinioCfg.MinioSecretKey = getEnvOrDefault("MINIO_SECRET_KEY", c.MinioCfg.MinioSecretKey)
	c.MinioCfg.MinioLocation = getEnvOrDefault("MINIO_LOCATION", c.MinioCfg.MinioLocation)
	c.MinioCfg.MinioSecure = getEnvBoolOrDefault("MINIO_SECURE", c.MinioCfg.MinioSecure)
	c.MinioCfg.PresignExpiry = getEnvDurationOrDefault("MINIO_PRESIGN_EXPIRY", c.MinioCfg.PresignExpiry)

	c.JWTCfg.Secret = getEnvOrDefault("JWT_SECRET", c.JWTCfg.Secret)
	c.JWTCfg.Expiry = getEnvDurationOrDefault("JWT_EXPIRY", c.JWTCfg.Expiry)
	c.JWTCfg.BootstrapAdminEmail = getEnvOrDefault("BOOTSTRAP_ADMIN_EMAIL", c.JWTCfg.BootstrapAdminEmail)

	c.WorkerCfg.NumWorkers = getEnvIntOrDefault("WORKER_COUNT", c.WorkerCfg.NumWorkers)
	c.WorkerCfg.QueueSize = getEnvIntOrDefault("WORKER_QUEUE_SIZE", c.WorkerCfg.QueueSize)
	c.WorkerCfg.PredictionInterval = getEnvDurationOrDefault("PREDICTION_INTERVAL", c.WorkerCfg.PredictionInterval)
}

// SlogLevel maps the configured level name onto slog. Unknown names mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer env value, using default", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("invalid boolean env value, using default", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration env value, using default", "key", key, "value", value)
		return defaultValue
	}
	return parsed
}
