package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider selects which implementation backs an upstream stage.
const (
	ProviderGateway = "gateway"
	ProviderOpenAI  = "openai"
)

// Config aggregates every setting the service reads.
type Config struct {
	Server   ServerConfig
	STT      STTConfig
	LLM      LLMConfig
	TTS      TTSConfig
	Recorder RecorderConfig
	Logging  LoggingConfig

	// ProfileCatalog optionally points at a YAML file replacing the
	// built-in assistant profiles.
	ProfileCatalog string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	stt, err := loadSTTConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	tts, err := loadTTSConfig()
	if err != nil {
		return nil, err
	}

	recorder, err := loadRecorderConfig()
	if err != nil {
		return nil, err
	}

	logging := LoggingConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
	if err := logging.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Server:         server,
		STT:            stt,
		LLM:            llm,
		TTS:            tts,
		Recorder:       recorder,
		Logging:        logging,
		ProfileCatalog: strings.TrimSpace(os.Getenv("PROFILE_CATALOG")),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// STTConfig describes the speech-to-text stage.
type STTConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
}

// Enabled reports whether the stage has the settings its provider needs.
func (c STTConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.APIKey != ""
	default:
		return c.BaseURL != ""
	}
}

func loadSTTConfig() (STTConfig, error) {
	provider, err := parseProviderEnv("STT_PROVIDER")
	if err != nil {
		return STTConfig{}, err
	}

	timeout, err := parseTimeoutEnv("STT_TIMEOUT", 30*time.Second)
	if err != nil {
		return STTConfig{}, err
	}

	return STTConfig{
		Provider: provider,
		BaseURL:  strings.TrimSpace(os.Getenv("STT_BASE_URL")),
		APIKey:   firstEnv("STT_API_KEY", "OPENAI_API_KEY"),
		Model:    getEnvOrDefault("STT_MODEL", "whisper-1"),
		Language: getEnvOrDefault("STT_LANGUAGE", ""),
		Timeout:  timeout,
	}, nil
}

// LLMConfig describes the chat stage.
type LLMConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// Enabled reports whether the stage has the settings its provider needs.
func (c LLMConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.APIKey != "" && c.Model != ""
	default:
		return c.BaseURL != ""
	}
}

func loadLLMConfig() (LLMConfig, error) {
	provider, err := parseProviderEnv("LLM_PROVIDER")
	if err != nil {
		return LLMConfig{}, err
	}

	timeout, err := parseTimeoutEnv("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider: provider,
		BaseURL:  strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
		APIKey:   firstEnv("LLM_API_KEY", "OPENAI_API_KEY"),
		Model:    getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		Timeout:  timeout,
	}, nil
}

// TTSConfig describes the synthesis stage.
type TTSConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Voice    string
	Timeout  time.Duration

	// FallbackEnabled turns on the local synthesizer when the TTS
	// service fails.
	FallbackEnabled bool
}

// Enabled reports whether the stage has the settings its provider needs.
func (c TTSConfig) Enabled() bool {
	switch c.Provider {
	case ProviderOpenAI:
		return c.APIKey != ""
	default:
		return c.BaseURL != ""
	}
}

func loadTTSConfig() (TTSConfig, error) {
	provider, err := parseProviderEnv("TTS_PROVIDER")
	if err != nil {
		return TTSConfig{}, err
	}

	timeout, err := parseTimeoutEnv("TTS_TIMEOUT", 30*time.Second)
	if err != nil {
		return TTSConfig{}, err
	}

	fallback, err := parseBoolEnv("TTS_FALLBACK_ENABLED", true)
	if err != nil {
		return TTSConfig{}, err
	}

	return TTSConfig{
		Provider:        provider,
		BaseURL:         strings.TrimSpace(os.Getenv("TTS_BASE_URL")),
		APIKey:          firstEnv("TTS_API_KEY", "OPENAI_API_KEY"),
		Voice:           getEnvOrDefault("TTS_VOICE", ""),
		Timeout:         timeout,
		FallbackEnabled: fallback,
	}, nil
}

// RecorderConfig bounds server-held recording sessions.
type RecorderConfig struct {
	// MaxBytes caps one recording buffer. Oversized appends abort the
	// recording.
	MaxBytes int
	// PlaybackEntries caps the in-memory fallback audio store.
	PlaybackEntries int
}

func loadRecorderConfig() (RecorderConfig, error) {
	maxBytes := 16 << 20
	if override, err := parseOptionalIntEnv("RECORDER_MAX_BYTES"); err != nil {
		return RecorderConfig{}, err
	} else if override != nil {
		if *override < 1024 {
			return RecorderConfig{}, fmt.Errorf("RECORDER_MAX_BYTES must be at least 1024, got %d", *override)
		}
		maxBytes = *override
	}

	entries := 64
	if override, err := parseOptionalIntEnv("PLAYBACK_STORE_ENTRIES"); err != nil {
		return RecorderConfig{}, err
	} else if override != nil {
		if *override < 1 {
			entries = 1
		} else {
			entries = *override
		}
	}

	return RecorderConfig{MaxBytes: maxBytes, PlaybackEntries: entries}, nil
}

// LoggingConfig selects the zap logger flavor.
type LoggingConfig struct {
	Level  string
	Format string
}

// Validate rejects levels and formats zap cannot build.
func (l LoggingConfig) Validate() error {
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of [debug, info, warn, error], got %q", l.Level)
	}

	switch l.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", l.Format)
	}

	return nil
}

func parseProviderEnv(key string) (string, error) {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch raw {
	case "":
		return ProviderGateway, nil
	case ProviderGateway, ProviderOpenAI:
		return raw, nil
	default:
		return "", fmt.Errorf("invalid %s value %q: expected %q or %q", key, raw, ProviderGateway, ProviderOpenAI)
	}
}

func parseTimeoutEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	seconds, err := parseOptionalIntEnv(key)
	if err != nil {
		return 0, err
	}
	if seconds == nil {
		return defaultValue, nil
	}
	if *seconds < 1 {
		return 0, fmt.Errorf("%s must be at least 1 second, got %d", key, *seconds)
	}
	return time.Duration(*seconds) * time.Second, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
