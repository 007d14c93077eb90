package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestFromEnv(t *testing.T) {
	t.Setenv("COGNIFY_DB_DRIVER", "postgres")
	t.Setenv("COGNIFY_DB", "postgres://localhost/cognify")
	t.Setenv("COGNIFY_WORKERS", "6")
	t.Setenv("COGNIFY_GRADE_TIMEOUT", "5s")
	t.Setenv("COGNIFY_AVG_TIME", "120")
	t.Setenv("COGNIFY_REFILL_INTERVAL", "1h")
	t.Setenv("COGNIFY_RETRIEVAL", "pinecone")
	t.Setenv("PINECONE_API_KEY", "pk")
	t.Setenv("PINECONE_INDEX_HOST", "idx.svc.pinecone.io")
	t.Setenv("COGNIFY_MEMORY", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.GradeTimeout)
	assert.Equal(t, 120.0, cfg.AvgSeconds())
	assert.Equal(t, time.Hour, cfg.RefillInterval)
	assert.Equal(t, "idx.svc.pinecone.io", cfg.Pinecone.Host)
	assert.Equal(t, 8, cfg.BackgroundWorkers, "unset keys keep defaults")
	require.NoError(t, cfg.Validate())
}

func TestFromEnvReportsBadValues(t *testing.T) {
	t.Setenv("COGNIFY_WORKERS", "four")
	t.Setenv("COGNIFY_TIER_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COGNIFY_WORKERS")
	assert.Contains(t, err.Error(), "COGNIFY_TIER_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad driver", func(c *Config) { c.DBDriver = "mysql" }, "COGNIFY_DB_DRIVER"},
		{"postgres without dsn", func(c *Config) { c.DBDriver = "postgres" }, "COGNIFY_DB is required"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "COGNIFY_WORKERS"},
		{"zero grade timeout", func(c *Config) { c.GradeTimeout = 0 }, "COGNIFY_GRADE_TIMEOUT"},
		{"pinecone without key", func(c *Config) { c.Retrieval = "pinecone" }, "PINECONE_API_KEY"},
		{"tavily without key", func(c *Config) { c.Ingest = "tavily" }, "TAVILY_API_KEY"},
		{"corpus without dir", func(c *Config) { c.Ingest = "corpus" }, "COGNIFY_CORPUS_DIR"},
		{"supermemory without key", func(c *Config) { c.Memory = "supermemory" }, "SUPERMEMORY_API_KEY"},
		{"unknown memory", func(c *Config) { c.Memory = "disk" }, "COGNIFY_MEMORY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("COGNIFY_ADDR=:9191\n"), 0o644))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("COGNIFY_ADDR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9191", cfg.Addr)
}

func TestLoadWithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
}
