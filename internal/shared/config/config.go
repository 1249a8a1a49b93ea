package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	Poll    PollConfig
	Search  SearchConfig
	Triage  TriageConfig
}

// ServerConfig holds the operational HTTP surface (health, metrics).
type ServerConfig struct {
	Port int
	Env  string
}

// BackendConfig holds the hospital backend connection settings.
type BackendConfig struct {
	// BaseURL is the backend root, e.g. http://localhost:8000
	BaseURL string
	// Token is the opaque bearer token attached to every request.
	// Obtaining and refreshing it is the session layer's problem.
	Token string
	// Timeout applies per request; the engine adds no retry on top.
	Timeout time.Duration
}

// PollConfig holds the refresh cadence for polled entity types.
type PollConfig struct {
	AlertInterval time.Duration
	BedInterval   time.Duration
}

// SearchConfig holds the medication search tuning knobs.
type SearchConfig struct {
	// Debounce is how long a query must stay unchanged before remote
	// enrichment fires.
	Debounce time.Duration
	// MaxSuggestions caps the merged suggestion list.
	MaxSuggestions int
	// EnrichMinQueryLen is the minimum query length for enrichment.
	EnrichMinQueryLen int
	// EnrichBelowResults triggers enrichment only when local results
	// number fewer than this.
	EnrichBelowResults int
}

// TriageConfig holds triage state machine tuning.
type TriageConfig struct {
	// ShiftCooldown is the minimum spacing between triage shifts for one
	// patient. Zero disables the limiter.
	ShiftCooldown time.Duration
	// ShiftBurst is how many shifts may land back-to-back before the
	// cooldown applies.
	ShiftBurst int
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("SERVER_PORT", 8090),
			Env:  getEnv("ENV", "development"),
		},
		Backend: BackendConfig{
			BaseURL: getEnv("BACKEND_URL", "http://localhost:8000"),
			Token:   getEnv("BACKEND_TOKEN", ""),
			Timeout: getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		Poll: PollConfig{
			AlertInterval: getEnvDuration("ALERT_POLL_INTERVAL", 15*time.Second),
			BedInterval:   getEnvDuration("BED_POLL_INTERVAL", 10*time.Second),
		},
		Search: SearchConfig{
			Debounce:           getEnvDuration("SEARCH_DEBOUNCE", 600*time.Millisecond),
			MaxSuggestions:     getEnvInt("SEARCH_MAX_SUGGESTIONS", 15),
			EnrichMinQueryLen:  getEnvInt("SEARCH_ENRICH_MIN_QUERY", 3),
			EnrichBelowResults: getEnvInt("SEARCH_ENRICH_BELOW", 5),
		},
		Triage: TriageConfig{
			ShiftCooldown: getEnvDuration("TRIAGE_SHIFT_COOLDOWN", 30*time.Second),
			ShiftBurst:    getEnvInt("TRIAGE_SHIFT_BURST", 2),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
