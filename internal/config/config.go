// Package config collects service settings from the environment.
// Every knob has a default so a bare `assistant-api` run works out of the
// box in fallback-only, pattern-decider mode.
package config

import (
	"os"
	"strconv"
	"time"
)

// LLM backend identifiers.
const (
	BackendPattern  = "pattern"
	BackendExternal = "external"
)

// Settings is the full service configuration. It is read-only after Load.
type Settings struct {
	// Guardrail policy.
	GuardrailThresholdKt float64
	UseGust              bool
	MagneticEnabled      bool

	// Loop limits.
	MaxLoops        int
	RequestDeadline time.Duration

	// LLM backend.
	LLMBackend string
	LLMURL     string
	LLMModel   string
	LLMTimeout time.Duration

	// Weather upstream. Empty URL means fallback-only mode.
	WeatherURL     string
	WeatherToken   string
	WeatherTimeout time.Duration

	// Audit sink.
	AuditLogPath string
	NATSURL      string

	// Optional storage backends.
	PostgresDSN    string
	ClickHouseHost string
	ClickHousePort int
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string
	SpecsDBPath    string

	// HTTP.
	ListenAddr string
}

// Load reads settings from the environment, applying defaults.
func Load() Settings {
	return Settings{
		GuardrailThresholdKt: envOrDefaultFloat("GUARDRAIL_THRESHOLD_KT", 3.0),
		UseGust:              envOrDefaultBool("USE_GUST_FOR_VERIFICATION", false),
		MagneticEnabled:      envOrDefaultBool("MAGNETIC_CORRECTION_ENABLED", true),

		MaxLoops:        envOrDefaultInt("MAX_LOOPS", 8),
		RequestDeadline: time.Duration(envOrDefaultInt("REQUEST_DEADLINE_MS", 30000)) * time.Millisecond,

		LLMBackend: envOrDefault("LLM_BACKEND", BackendPattern),
		LLMURL:     envOrDefault("LLM_URL", "http://localhost:11434"),
		LLMModel:   envOrDefault("LLM_MODEL", "llama3.1"),
		LLMTimeout: time.Duration(envOrDefaultInt("LLM_TIMEOUT_MS", 20000)) * time.Millisecond,

		WeatherURL:     envOrDefault("WEATHER_URL", ""),
		WeatherToken:   envOrDefault("WEATHER_TOKEN", ""),
		WeatherTimeout: time.Duration(envOrDefaultInt("WEATHER_TIMEOUT_MS", 10000)) * time.Millisecond,

		AuditLogPath: envOrDefault("AUDIT_LOG_PATH", "logs/trace.jsonl"),
		NATSURL:      envOrDefault("NATS_URL", ""),

		PostgresDSN:    envOrDefault("POSTGRES_DSN", ""),
		ClickHouseHost: envOrDefault("CLICKHOUSE_HOST", ""),
		ClickHousePort: envOrDefaultInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDB:   envOrDefault("CLICKHOUSE_DB", "assistant"),
		ClickHouseUser: envOrDefault("CLICKHOUSE_USER", "default"),
		ClickHousePass: envOrDefault("CLICKHOUSE_PASS", ""),
		SpecsDBPath:    envOrDefault("SPECS_DB_PATH", ":memory:"),

		ListenAddr: envOrDefault("LISTEN_ADDR", ":8000"),
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
