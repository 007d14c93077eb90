// Package config loads process configuration from a .env file and
// COGNIFY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/cognify/internal/llm"
)

// Config is the whole-process configuration.
type Config struct {
	DBDriver string
	DB       string
	Addr     string
	LogMode  string

	Workers           int
	BackgroundWorkers int

	GradeTimeout       time.Duration
	ContextTimeout     time.Duration
	RemediationTimeout time.Duration
	TierTimeout        time.Duration

	LowStockThreshold int
	RefillBatch       int
	RefillInterval    time.Duration
	AvgTime           time.Duration

	// Retrieval is "memory" or "pinecone".
	Retrieval string
	Pinecone  PineconeConfig

	// Ingest is "tavily", "corpus" or "none".
	Ingest       string
	TavilyAPIKey string
	CorpusDir    string

	// Memory is "none", "supermemory" or "redis".
	Memory            string
	SupermemoryAPIKey string
	RedisURL          string

	// ConceptGraph optionally overrides the embedded graph.
	ConceptGraph string

	LLM llm.Config
}

// PineconeConfig locates a Pinecone index.
type PineconeConfig struct {
	APIKey    string
	Host      string
	Namespace string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DBDriver:           "sqlite",
		Addr:               ":8080",
		LogMode:            "development",
		Workers:            4,
		BackgroundWorkers:  8,
		GradeTimeout:       20 * time.Second,
		ContextTimeout:     3 * time.Second,
		RemediationTimeout: 8 * time.Second,
		TierTimeout:        15 * time.Second,
		LowStockThreshold:  10,
		RefillBatch:        8,
		RefillInterval:     24 * time.Hour,
		AvgTime:            90 * time.Second,
		Retrieval:          "memory",
		Ingest:             "none",
		Memory:             "none",
		LLM:                llm.DefaultConfig(),
	}
}

// Load reads .env from the working directory when present, then the
// environment. Malformed numbers and durations are reported together.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment over Default.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	str(&cfg.DBDriver, "COGNIFY_DB_DRIVER")
	str(&cfg.DB, "COGNIFY_DB")
	str(&cfg.Addr, "COGNIFY_ADDR")
	str(&cfg.LogMode, "COGNIFY_LOG_MODE")

	errs = append(errs,
		integer(&cfg.Workers, "COGNIFY_WORKERS"),
		integer(&cfg.BackgroundWorkers, "COGNIFY_BACKGROUND_WORKERS"),
		duration(&cfg.GradeTimeout, "COGNIFY_GRADE_TIMEOUT"),
		duration(&cfg.ContextTimeout, "COGNIFY_CONTEXT_TIMEOUT"),
		duration(&cfg.RemediationTimeout, "COGNIFY_REMEDIATION_TIMEOUT"),
		duration(&cfg.TierTimeout, "COGNIFY_TIER_TIMEOUT"),
		integer(&cfg.LowStockThreshold, "COGNIFY_LOW_STOCK_THRESHOLD"),
		integer(&cfg.RefillBatch, "COGNIFY_REFILL_BATCH"),
		duration(&cfg.RefillInterval, "COGNIFY_REFILL_INTERVAL"),
		duration(&cfg.AvgTime, "COGNIFY_AVG_TIME"),
	)

	str(&cfg.Retrieval, "COGNIFY_RETRIEVAL")
	str(&cfg.Pinecone.APIKey, "PINECONE_API_KEY")
	str(&cfg.Pinecone.Host, "PINECONE_INDEX_HOST")
	str(&cfg.Pinecone.Namespace, "PINECONE_NAMESPACE")

	str(&cfg.Ingest, "COGNIFY_INGEST")
	str(&cfg.TavilyAPIKey, "TAVILY_API_KEY")
	str(&cfg.CorpusDir, "COGNIFY_CORPUS_DIR")

	str(&cfg.Memory, "COGNIFY_MEMORY")
	str(&cfg.SupermemoryAPIKey, "SUPERMEMORY_API_KEY")
	str(&cfg.RedisURL, "REDIS_URL")

	str(&cfg.ConceptGraph, "COGNIFY_CONCEPT_GRAPH")

	cfg.LLM = llm.ConfigFromEnv()

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges and that each selected backend is configured.
// LLM keys are checked separately since offline commands run without one.
func (c Config) Validate() error {
	var errs []error
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		errs = append(errs, fmt.Errorf("COGNIFY_DB_DRIVER: unknown driver %q", c.DBDriver))
	}
	if c.DBDriver == "postgres" && c.DB == "" {
		errs = append(errs, errors.New("COGNIFY_DB is required for postgres"))
	}
	if c.Workers < 1 {
		errs = append(errs, errors.New("COGNIFY_WORKERS must be at least 1"))
	}
	if c.BackgroundWorkers < 1 {
		errs = append(errs, errors.New("COGNIFY_BACKGROUND_WORKERS must be at least 1"))
	}
	for name, d := range map[string]time.Duration{
		"COGNIFY_GRADE_TIMEOUT":       c.GradeTimeout,
		"COGNIFY_CONTEXT_TIMEOUT":     c.ContextTimeout,
		"COGNIFY_REMEDIATION_TIMEOUT": c.RemediationTimeout,
		"COGNIFY_TIER_TIMEOUT":        c.TierTimeout,
		"COGNIFY_REFILL_INTERVAL":     c.RefillInterval,
		"COGNIFY_AVG_TIME":            c.AvgTime,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.LowStockThreshold < 1 {
		errs = append(errs, errors.New("COGNIFY_LOW_STOCK_THRESHOLD must be at least 1"))
	}
	if c.RefillBatch < 1 {
		errs = append(errs, errors.New("COGNIFY_REFILL_BATCH must be at least 1"))
	}

	switch c.Retrieval {
	case "memory":
	case "pinecone":
		if c.Pinecone.APIKey == "" || c.Pinecone.Host == "" {
			errs = append(errs, errors.New("PINECONE_API_KEY and PINECONE_INDEX_HOST are required for pinecone retrieval"))
		}
	default:
		errs = append(errs, fmt.Errorf("COGNIFY_RETRIEVAL: unknown backend %q", c.Retrieval))
	}

	switch c.Ingest {
	case "none":
	case "tavily":
		if c.TavilyAPIKey == "" {
			errs = append(errs, errors.New("TAVILY_API_KEY is required for tavily ingestion"))
		}
	case "corpus":
		if c.CorpusDir == "" {
			errs = append(errs, errors.New("COGNIFY_CORPUS_DIR is required for corpus ingestion"))
		}
	default:
		errs = append(errs, fmt.Errorf("COGNIFY_INGEST: unknown source %q", c.Ingest))
	}

	switch c.Memory {
	case "none":
	case "supermemory":
		if c.SupermemoryAPIKey == "" {
			errs = append(errs, errors.New("SUPERMEMORY_API_KEY is required for supermemory"))
		}
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for redis memory"))
		}
	default:
		errs = append(errs, fmt.Errorf("COGNIFY_MEMORY: unknown backend %q", c.Memory))
	}
	return errors.Join(errs...)
}

// AvgSeconds returns AvgTime in seconds.
func (c Config) AvgSeconds() float64 {
	return c.AvgTime.Seconds()
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func integer(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

// duration accepts Go durations ("90s", "24h") or bare seconds ("90").
func duration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
