package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"DEBUG" envDefault:"false"`

	PreferIPv4     bool          `env:"PREFER_IPV4" envDefault:"true"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT_SECONDS" envDefault:"180"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"900"`
	WebAddr        string        `env:"WEB_ADDR" envDefault:":8080"`
	MaxConcurrent  int           `env:"MAX_CONCURRENT" envDefault:"4"`

	OutputDir string `env:"OUTPUT_DIR" envDefault:"assets/generated"`

	HFToken             string        `env:"HF_TOKEN"`
	HFBaseURL           string        `env:"HF_BASE_URL" envDefault:"https://api-inference.huggingface.co"`
	HFModel             string        `env:"HF_MODEL" envDefault:"stabilityai/stable-diffusion-xl-base-1.0"`
	PrimaryTimeout      time.Duration `env:"PRIMARY_TIMEOUT_SECONDS" envDefault:"30"`
	PrimaryPerMinute    int           `env:"PRIMARY_REQUESTS_PER_MINUTE" envDefault:"0"`
	OpenAIAPIKey        string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIImageModel    string        `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`
	TranslatorProvider  string        `env:"TRANSLATOR_PROVIDER" envDefault:"openai"`
	TranslationModel    string        `env:"TRANSLATION_MODEL"`
	TranslationFallback string        `env:"TRANSLATION_FALLBACK_MODEL"`
	GeminiAPIKey        string        `env:"GEMINI_API_KEY"`
	GeminiBaseURL       string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion    string        `env:"GEMINI_API_VERSION" envDefault:"v1beta"`

	BrandImagePath string `env:"BRAND_IMAGE_PATH" envDefault:"frontend/images/werkr_brand_image.png"`
	BrandPosition  string `env:"BRAND_POSITION" envDefault:"top_left"`
	BrandSize      int    `env:"BRAND_SIZE" envDefault:"350"`
	FontDir        string `env:"FONT_DIR" envDefault:"assets/fonts"`

	ProductConcurrency int           `env:"PRODUCT_CONCURRENCY" envDefault:"1"`
	PrecheckMessage    bool          `env:"PRECHECK_MESSAGE" envDefault:"true"`
	HookTimeout        time.Duration `env:"HOOK_TIMEOUT_SECONDS" envDefault:"30"`

	CampaignLogDSN string `env:"CAMPAIGN_LOG_DSN" envDefault:"db/campaigns.sqlite"`

	TelegramToken  string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `env:"TELEGRAM_CHAT_ID" envDefault:"0"`
}

// Load reads the environment. Durations named *_SECONDS are given as plain
// integers and converted here.
func Load() (Config, error) {
	var cfg Config
	err := env.ParseWithOptions(&cfg, env.Options{
		FuncMap: map[reflect.Type]env.ParserFunc{
			durationType: parseSeconds,
		},
	})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.TranslatorProvider = strings.ToLower(strings.TrimSpace(cfg.TranslatorProvider))
	cfg.HFToken = strings.TrimSpace(cfg.HFToken)
	cfg.OpenAIAPIKey = strings.TrimSpace(cfg.OpenAIAPIKey)
	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)

	switch cfg.TranslatorProvider {
	case "openai", "gemini":
	default:
		return Config{}, fmt.Errorf("TRANSLATOR_PROVIDER must be openai or gemini, got %q", cfg.TranslatorProvider)
	}
	if cfg.TranslatorProvider == "gemini" && cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required when TRANSLATOR_PROVIDER=gemini")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return Config{}, errors.New("OUTPUT_DIR is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.ProductConcurrency < 1 {
		cfg.ProductConcurrency = 1
	}
	if cfg.PrimaryPerMinute < 0 {
		cfg.PrimaryPerMinute = 0
	}
	if cfg.BrandSize <= 0 {
		cfg.BrandSize = 350
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 900 * time.Second
	}
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = 30 * time.Second
	}
	if cfg.HookTimeout <= 0 {
		cfg.HookTimeout = 30 * time.Second
	}

	if cfg.TranslationModel == "" {
		cfg.TranslationModel, cfg.TranslationFallback = defaultTranslationModels(cfg.TranslatorProvider, cfg.TranslationFallback)
	}

	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

func parseSeconds(value string) (any, error) {
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid seconds %q", value)
	}
	return time.Duration(n) * time.Second, nil
}

func defaultTranslationModels(provider, fallback string) (string, string) {
	if provider == "gemini" {
		if fallback == "" {
			fallback = "gemini-2.0-flash"
		}
		return "gemini-2.5-flash", fallback
	}
	if fallback == "" {
		fallback = "gpt-4o"
	}
	return "gpt-4.1", fallback
}
