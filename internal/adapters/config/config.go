package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"cropadvisor/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Model         ModelConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Notify        NotifyConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"cropadvisor"`
	DisplayName string `envconfig:"SERVICE_DISPLAY_NAME" default:"Tomato Irrigation AI Service"`
	Env         string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"2.0"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

type HTTPConfig struct {
	Port      int     `envconfig:"HTTP_PORT" default:"8000"`
	RateLimit float64 `envconfig:"HTTP_RATE_LIMIT" default:"20"` // requests per second per client, 0 disables
	RateBurst int     `envconfig:"HTTP_RATE_BURST" default:"40"`

	CORSOrigins []string `envconfig:"HTTP_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:5174,http://127.0.0.1:5173,http://127.0.0.1:5174"`
}

// ModelConfig selects where the training set and ideal-value table come from
type ModelConfig struct {
	K              int           `envconfig:"MODEL_K" default:"5"`
	Source         string        `envconfig:"DATASET_SOURCE" default:"csv"` // csv|postgres
	DataDir        string        `envconfig:"DATA_DIR" default:"data"`
	TrainingFile   string        `envconfig:"TRAINING_FILE" default:"augmented_dataset.csv"`
	IdealFile      string        `envconfig:"IDEAL_FILE" default:"utility_matrix.csv"`
	ReloadInterval time.Duration `envconfig:"MODEL_RELOAD_INTERVAL" default:"0"` // 0 disables hot reload
}

// TrainingPath returns the training CSV path
func (c ModelConfig) TrainingPath() string {
	return filepath.Join(c.DataDir, c.TrainingFile)
}

// IdealPath returns the ideal-value CSV path
func (c ModelConfig) IdealPath() string {
	return filepath.Join(c.DataDir, c.IdealFile)
}

type PostgresConfig struct {
	Enabled  bool   `envconfig:"POSTGRES_ENABLED" default:"false"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"cropadvisor"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool          `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string        `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL time.Duration `envconfig:"ANALYSIS_CACHE_TTL" default:"10m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"ai_service_group"`
}

// NotifyConfig points at the notification server that receives HTTP analyses
type NotifyConfig struct {
	Enabled   bool          `envconfig:"NOTIFY_ENABLED" default:"false"`
	URL       string        `envconfig:"NOTIFY_URL" default:"http://localhost:8089/notify/send"`
	Timeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"5s"`
	RateLimit float64       `envconfig:"NOTIFY_RATE_LIMIT" default:"10"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Validate checks values envconfig cannot express
func (c *Config) Validate() error {
	switch c.Model.Source {
	case "csv":
	case "postgres":
		if !c.Postgres.Enabled {
			return errors.NewValidationError("DATASET_SOURCE", "postgres source requires POSTGRES_ENABLED=true", c.Model.Source)
		}
	default:
		return errors.NewValidationError("DATASET_SOURCE", "must be csv or postgres", c.Model.Source)
	}
	if c.Model.K <= 0 {
		return errors.NewValidationError("MODEL_K", "must be positive", c.Model.K)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.NewValidationError("KAFKA_BROKERS", "required when KAFKA_ENABLED=true", c.Kafka.Brokers)
	}
	return nil
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
