package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

// ErrMissingCredential is returned by Validate when the selected provider has no API key.
var ErrMissingCredential = errors.New("missing provider credential")

type Config struct {
	// LLM settings
	LLMProvider      LLMProvider   `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMTimeout       time.Duration `env:"LLM_TIMEOUT" envDefault:"0s"`
	GeminiAPIKey     string        `env:"GEMINI_API_KEY"`
	APIKey           string        `env:"API_KEY"`
	GeminiModel      string        `env:"GEMINI_MODEL" envDefault:"gemini-3-flash-preview"`
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL"`
	OpenAIModel      string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string        `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH"`

	// Web
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Finished or untouched sessions are forgotten after SESSION_TTL
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	SessionSweepCron string        `env:"SESSION_SWEEP_CRON" envDefault:"@every 5m"`

	// Telegram (optional surface)
	TelegramBotToken string  `env:"TELEGRAM_BOT_TOKEN"`
	AllowedUsers     []int64 `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID      int64   `env:"ADMIN_USER"`
	MessageParseMode string  `env:"MESSAGE_PARSE_MODE" envDefault:"HTML"`

	// Usage log and daily report; empty path disables both
	UsageLogPath string `env:"USAGE_LOG_PATH"`
	ReportCron   string `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	// Logging
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// New parses the process environment. It does not validate credentials, see Validate.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(cfg.LLMProvider))))
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = ProviderGemini
	}
	return cfg, nil
}

// GeminiKey prefers GEMINI_API_KEY and falls back to the generic API_KEY.
func (c *Config) GeminiKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.APIKey
}

// Validate fails fast when the credential for the selected provider is absent.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiKey() == "" {
			return fmt.Errorf("%w: set GEMINI_API_KEY or API_KEY", ErrMissingCredential)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential)
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return fmt.Errorf("%w: set YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("unknown llm provider: %s", c.LLMProvider)
	}
	return nil
}

// Model returns the model name configured for the selected provider.
func (c *Config) Model() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIModel
	case ProviderYandex:
		return ""
	default:
		return c.GeminiModel
	}
}
