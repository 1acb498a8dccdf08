package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_DRIVER", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Inference.BaseURL != "http://localhost:5000" {
		t.Fatalf("unexpected inference base url: %s", cfg.Inference.BaseURL)
	}
	if cfg.Inference.Timeout != 60*time.Second {
		t.Fatalf("unexpected inference timeout: %s", cfg.Inference.Timeout)
	}
	if cfg.AI.HistoryLimit != 24 {
		t.Fatalf("unexpected history limit: %d", cfg.AI.HistoryLimit)
	}
	if cfg.AI.Temperature != nil {
		t.Fatalf("expected temperature unset")
	}
}

func TestLoadSamplingOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_DRIVER", "memory")
	t.Setenv("AI_TEMPERATURE", "0.4")
	t.Setenv("AI_MAX_TOKENS", "256")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.AI.Temperature == nil || *cfg.AI.Temperature != 0.4 {
		t.Fatalf("expected temperature 0.4, got %v", cfg.AI.Temperature)
	}
	if cfg.AI.MaxTokens == nil || *cfg.AI.MaxTokens != 256 {
		t.Fatalf("expected max tokens 256, got %v", cfg.AI.MaxTokens)
	}
}

func TestLoadRejectsUnknownStoreDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "firestore")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}

func TestLoadRejectsInvalidTemperature(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_DRIVER", "memory")
	t.Setenv("AI_TEMPERATURE", "warm")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid temperature")
	}
}

func TestServerAddr(t *testing.T) {
	cases := map[string]string{
		"8080":           ":8080",
		":9000":          ":9000",
		"127.0.0.1:8081": "127.0.0.1:8081",
	}
	for port, want := range cases {
		got, err := ServerConfig{Port: port}.Addr()
		if err != nil {
			t.Fatalf("Addr(%q) err: %v", port, err)
		}
		if got != want {
			t.Fatalf("Addr(%q) = %q, want %q", port, got, want)
		}
	}

	if _, err := (ServerConfig{Port: "80 80"}).Addr(); err == nil {
		t.Fatal("expected error for port with spaces")
	}
}

func TestAIConfigEnabled(t *testing.T) {
	if !(AIConfig{Provider: ProviderOpenAI, OpenAIModel: "llama3", OpenAIBaseURL: "http://localhost:11434/v1"}).Enabled() {
		t.Fatal("expected openai provider enabled")
	}
	if (AIConfig{Provider: ProviderArk, Model: "ep-1"}).Enabled() {
		t.Fatal("expected ark provider disabled without credentials")
	}
	if !(AIConfig{Provider: ProviderArk, Model: "ep-1", APIKey: "k"}).Enabled() {
		t.Fatal("expected ark provider enabled with api key")
	}
}
