package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 1000, cfg.Search.ChunkSize)
	assert.Equal(t, 200, cfg.Search.ChunkOverlap)
	assert.Equal(t, 0.7, cfg.Search.Threshold)
	assert.Equal(t, 0.8, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.6, cfg.Search.KeywordWeight)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "document-ingest", cfg.Kafka.Topics.DocumentIngest)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9999
search:
  threshold: 0.5
  chunkSize: 500
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Search.Threshold)
	assert.Equal(t, 500, cfg.Search.ChunkSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DS_SERVER_PORT", "7070")
	t.Setenv("DS_POSTGRES_HOST", "db.internal")
	t.Setenv("DS_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("DS_EMBEDDING_DIMENSION", "768")
	t.Setenv("DS_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }, "embedding.dimension"},
		{"zero chunk size", func(c *Config) { c.Search.ChunkSize = 0 }, "search.chunkSize"},
		{"negative overlap", func(c *Config) { c.Search.ChunkOverlap = -1 }, "search.chunkOverlap"},
		{"weight above one", func(c *Config) { c.Search.SemanticWeight = 1.5 }, "search.semanticWeight"},
		{"negative keyword weight", func(c *Config) { c.Search.KeywordWeight = -0.1 }, "search.keywordWeight"},
		{"threshold above one", func(c *Config) { c.Search.Threshold = 1.1 }, "search.threshold"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresConfig{
		Host: "localhost", Port: 5432, User: "docusage",
		Password: "secret", Database: "docs", SSLMode: "disable",
	}.DSN()
	assert.Equal(t, "host=localhost port=5432 user=docusage password=secret dbname=docs sslmode=disable", dsn)
}
