package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestNew_Defaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "HTTP_ADDR", "GEMINI_MODEL", "SESSION_TTL"} {
		unsetenv(t, k)
	}

	cfg, err := New()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.LLMProvider != ProviderGemini {
		t.Fatalf("want default provider gemini, got %q", cfg.LLMProvider)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected http addr: %q", cfg.HTTPAddr)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.SessionTTL)
	}
	if cfg.Model() != "gemini-3-flash-preview" {
		t.Fatalf("unexpected model: %q", cfg.Model())
	}
}

func TestValidate_MissingCredentialFailsFast(t *testing.T) {
	cfg := &Config{LLMProvider: ProviderGemini}
	err := cfg.Validate()
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("want ErrMissingCredential, got %v", err)
	}

	cfg.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("API_KEY fallback should satisfy gemini: %v", err)
	}

	cfg = &Config{LLMProvider: ProviderYandex, YandexOAuthToken: "t"}
	if err := cfg.Validate(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("yandex without folder must fail, got %v", err)
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := &Config{LLMProvider: "mystery"}
	err := cfg.Validate()
	if err == nil || errors.Is(err, ErrMissingCredential) {
		t.Fatalf("want unknown provider error, got %v", err)
	}
}

func TestNew_ParsesAllowedUsers(t *testing.T) {
	t.Setenv("ALLOWED_USERS", "1:2:3")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	cfg, err := New()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cfg.AllowedUsers) != 3 || cfg.AllowedUsers[2] != 3 {
		t.Fatalf("unexpected allowed users: %v", cfg.AllowedUsers)
	}
	if cfg.LLMProvider != ProviderOpenAI {
		t.Fatalf("provider not normalized: %q", cfg.LLMProvider)
	}
}
