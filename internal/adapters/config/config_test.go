package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cropadvisor/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "cropadvisor", cfg.App.Name)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, 5, cfg.Model.K)
	assert.Equal(t, "csv", cfg.Model.Source)
	assert.Equal(t, time.Duration(0), cfg.Model.ReloadInterval)
	assert.Equal(t, filepath.Join("data", "augmented_dataset.csv"), cfg.Model.TrainingPath())
	assert.Equal(t, filepath.Join("data", "utility_matrix.csv"), cfg.Model.IdealPath())
	assert.Equal(t, "ai_service_group", cfg.Kafka.GroupID)
	assert.Equal(t, "http://localhost:8089/notify/send", cfg.Notify.URL)
	assert.False(t, cfg.Postgres.Enabled)
	assert.Contains(t, cfg.HTTP.CORSOrigins, "http://localhost:5173")
	assert.Len(t, cfg.HTTP.CORSOrigins, 4)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("MODEL_K", "7")
	t.Setenv("DATA_DIR", "/srv/ai")
	t.Setenv("MODEL_RELOAD_INTERVAL", "8h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Model.K)
	assert.Equal(t, "/srv/ai/augmented_dataset.csv", cfg.Model.TrainingPath())
	assert.Equal(t, 8*time.Hour, cfg.Model.ReloadInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown source", mutate: func(c *Config) { c.Model.Source = "parquet" }, wantErr: true},
		{name: "postgres source without postgres", mutate: func(c *Config) { c.Model.Source = "postgres" }, wantErr: true},
		{name: "postgres source", mutate: func(c *Config) { c.Model.Source = "postgres"; c.Postgres.Enabled = true }},
		{name: "zero k", mutate: func(c *Config) { c.Model.K = 0 }, wantErr: true},
		{name: "kafka without brokers", mutate: func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Model: ModelConfig{Source: "csv", K: 5}, Kafka: KafkaConfig{Brokers: []string{"b:9092"}}}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", c.DSN())
}
