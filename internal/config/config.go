// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	GRPCHealthAddr string

	Models    ModelConfig
	Voices    VoiceConfig
	Limits    LimitsConfig
	RateLimit RateLimitConfig
	SSE       SSEConfig
	Retention RetentionConfig

	ConversationLog ConversationLogConfig
}

// ModelConfig selects the hosted models used for each concern.
type ModelConfig struct {
	APIKey     string
	Text       string
	TTS        string
	Transcribe string
	Live       string
	// Streaming selects streamed generation; single-shot otherwise.
	Streaming bool
}

// VoiceConfig maps voice attributes to prebuilt provider voice names.
type VoiceConfig struct {
	Female  string
	Male    string
	Default string
}

// LimitsConfig holds the product limits of the tutor.
type LimitsConfig struct {
	HistoryCap      int
	LockoutDuration time.Duration
}

// RateLimitConfig controls the per-user request limiter.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// SSEConfig controls server-sent event streaming.
type SSEConfig struct {
	KeepaliveInterval  time.Duration
	MaxRequestBodySize int64
}

// RetentionConfig controls the background sweeper.
type RetentionConfig struct {
	Interval       time.Duration
	SessionIdleTTL time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

const (
	MinHistoryCap = 10
	MaxHistoryCap = 50
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	apiKey := getEnv("GEMINI_API_KEY", "")
	if apiKey == "" {
		apiKey = getEnv("GOOGLE_API_KEY", "")
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/paradox.db"),
		GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ""),
		Models: ModelConfig{
			APIKey:     apiKey,
			Text:       getEnv("TEXT_MODEL", "gemini-3-flash-preview"),
			TTS:        getEnv("TTS_MODEL", "gemini-2.5-flash-preview-tts"),
			Transcribe: getEnv("TRANSCRIBE_MODEL", "gemini-2.5-flash"),
			Live:       getEnv("LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
			Streaming:  getEnvBool("STREAMING", true),
		},
		Voices: VoiceConfig{
			Female:  getEnv("VOICE_FEMALE", "Kore"),
			Male:    getEnv("VOICE_MALE", "Puck"),
			Default: getEnv("VOICE_DEFAULT", "Kore"),
		},
		Limits: LimitsConfig{
			HistoryCap:      getEnvInt("HISTORY_CAP", MinHistoryCap),
			LockoutDuration: getEnvDuration("LOCKOUT_DURATION", 3*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 10),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		SSE: SSEConfig{
			KeepaliveInterval:  getEnvDuration("SSE_KEEPALIVE_INTERVAL", 10*time.Second),
			MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		},
		Retention: RetentionConfig{
			Interval:       getEnvDuration("RETENTION_INTERVAL", 5*time.Minute),
			SessionIdleTTL: getEnvDuration("SESSION_IDLE_TTL", 60*time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Models.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY must be set")
	}
	if c.Models.Text == "" {
		return fmt.Errorf("TEXT_MODEL cannot be empty")
	}
	if c.Limits.HistoryCap < MinHistoryCap || c.Limits.HistoryCap > MaxHistoryCap {
		return fmt.Errorf("HISTORY_CAP must be between %d and %d", MinHistoryCap, MaxHistoryCap)
	}
	if c.Limits.LockoutDuration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 || c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	if c.SSE.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("RETENTION_INTERVAL must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
