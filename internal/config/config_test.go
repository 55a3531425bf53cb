package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.STT.Provider != ProviderGateway {
		t.Errorf("unexpected STT provider: %s", cfg.STT.Provider)
	}
	if cfg.STT.Timeout != 30*time.Second {
		t.Errorf("unexpected STT timeout: %s", cfg.STT.Timeout)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("unexpected LLM timeout: %s", cfg.LLM.Timeout)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("unexpected LLM model: %s", cfg.LLM.Model)
	}
	if !cfg.TTS.FallbackEnabled {
		t.Error("fallback should default to enabled")
	}
	if cfg.Recorder.MaxBytes != 16<<20 {
		t.Errorf("unexpected recorder cap: %d", cfg.Recorder.MaxBytes)
	}
	if cfg.Recorder.PlaybackEntries != 64 {
		t.Errorf("unexpected playback entries: %d", cfg.Recorder.PlaybackEntries)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadServerAddrForms(t *testing.T) {
	cases := []struct {
		name string
		port string
		want string
	}{
		{name: "bare port", port: "9090", want: ":9090"},
		{name: "colon prefix", port: ":7000", want: ":7000"},
		{name: "host and port", port: "127.0.0.1:8081", want: "127.0.0.1:8081"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("PORT", tc.port)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load err: %v", err)
			}
			if cfg.Server.Addr != tc.want {
				t.Fatalf("addr = %s, want %s", cfg.Server.Addr, tc.want)
			}
		})
	}
}

func TestLoadRejectsInvalidProvider(t *testing.T) {
	t.Setenv("STT_PROVIDER", "azure")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	t.Setenv("LLM_TIMEOUT", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero timeout")
	}

	t.Setenv("LLM_TIMEOUT", "abc")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric timeout")
	}
}

func TestLoadRejectsTinyRecorderCap(t *testing.T) {
	t.Setenv("RECORDER_MAX_BYTES", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for cap below the floor")
	}
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestSTTConfigEnabled(t *testing.T) {
	cases := []struct {
		name string
		cfg  STTConfig
		want bool
	}{
		{name: "gateway with URL", cfg: STTConfig{Provider: ProviderGateway, BaseURL: "http://stt"}, want: true},
		{name: "gateway without URL", cfg: STTConfig{Provider: ProviderGateway}, want: false},
		{name: "openai with key", cfg: STTConfig{Provider: ProviderOpenAI, APIKey: "sk-x"}, want: true},
		{name: "openai without key", cfg: STTConfig{Provider: ProviderOpenAI}, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.cfg.Enabled(); got != tc.want {
				t.Fatalf("Enabled() = %v, want %v", got, tc.want)
			}
		})
	}
}
