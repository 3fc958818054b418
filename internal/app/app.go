// Package app assembles the campaign pipeline from configuration. Both
// entry points share it.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"creative-automation/internal/audience"
	"creative-automation/internal/campaign"
	"creative-automation/internal/campaignlog"
	"creative-automation/internal/compliance"
	"creative-automation/internal/compose"
	"creative-automation/internal/config"
	"creative-automation/internal/gemini"
	"creative-automation/internal/httpclient"
	"creative-automation/internal/huggingface"
	"creative-automation/internal/imagegen"
	"creative-automation/internal/llm"
	"creative-automation/internal/locale"
	"creative-automation/internal/localize"
	"creative-automation/internal/openai"
	"creative-automation/internal/telegram"
)

type App struct {
	Config    config.Config
	Service   *campaign.Service
	Locales   *locale.Registry
	Audiences *audience.Catalog
	// Log is nil when CAMPAIGN_LOG_DSN is empty.
	Log    *campaignlog.Store
	Logger *slog.Logger
}

func NewLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = NewLogger(cfg)
	}

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	locales := locale.Default()
	audiences := audience.Default()

	hf := huggingface.New(huggingface.Options{
		Token:      cfg.HFToken,
		BaseURL:    cfg.HFBaseURL,
		Model:      cfg.HFModel,
		HTTPClient: httpClient,
		Logger:     logger,
	})
	oai := openai.New(openai.Options{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		ImageModel: cfg.OpenAIImageModel,
		HTTPClient: httpClient,
		Debug:      cfg.Debug,
		Logger:     logger,
	})

	var fallback imagegen.Provider
	if oai.Configured() {
		fallback = oai
	} else {
		logger.Warn("OPENAI_API_KEY not set: image generation has no fallback provider")
	}
	images := imagegen.New(imagegen.Options{
		Primary:          hf,
		Fallback:         fallback,
		PrimaryTimeout:   cfg.PrimaryTimeout,
		PrimaryPerMinute: cfg.PrimaryPerMinute,
		Logger:           logger,
	})

	var completer llm.Completer
	switch {
	case cfg.TranslatorProvider == "gemini":
		completer = gemini.New(gemini.Options{
			APIKey:     cfg.GeminiAPIKey,
			BaseURL:    cfg.GeminiBaseURL,
			APIVersion: cfg.GeminiAPIVersion,
			HTTPClient: httpClient,
			Logger:     logger,
		})
	case oai.Configured():
		completer = oai
	default:
		logger.Warn("no translation provider configured: messages stay in the source language")
	}
	translator := localize.NewTranslator(localize.Options{
		Completer:     completer,
		Model:         cfg.TranslationModel,
		FallbackModel: cfg.TranslationFallback,
		Audiences:     audiences,
		Logger:        logger,
	})

	brand, err := compose.LoadBrand(cfg.BrandImagePath)
	if err != nil {
		return nil, err
	}
	if brand == nil {
		logger.Warn("brand image not found, creatives will carry text only", "path", cfg.BrandImagePath)
	}
	fontBook := compose.NewFontBook(compose.FontBookOptions{
		FS:     os.DirFS(cfg.FontDir),
		Logger: logger,
	})
	for _, script := range []locale.ScriptClass{locale.ScriptCJK, locale.ScriptArabic, locale.ScriptCyrillic} {
		if !fontBook.Bundled(script) {
			logger.Warn("no font file found for script, falling back to built-in faces", "script", script, "font_dir", cfg.FontDir)
		}
	}
	compositor := compose.New(compose.Options{
		Fonts:     fontBook,
		Brand:     brand,
		BrandSize: cfg.BrandSize,
		Position:  compose.ParsePosition(cfg.BrandPosition),
		Logger:    logger,
	})

	a := &App{
		Config:    cfg,
		Locales:   locales,
		Audiences: audiences,
		Logger:    logger,
	}

	var hooks []campaign.FinalizeHook
	if cfg.CampaignLogDSN != "" {
		store, err := openLog(cfg.CampaignLogDSN, logger)
		if err != nil {
			return nil, err
		}
		a.Log = store
		hooks = append(hooks, store.Hook())
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		notifier, err := telegram.New(telegram.Options{
			Token:      cfg.TelegramToken,
			ChatID:     cfg.TelegramChatID,
			HTTPClient: httpClient,
			Logger:     logger,
			Debug:      cfg.Debug,
		})
		if err != nil {
			// Notifications are optional; a bad token must not block generation.
			logger.Error("telegram init failed, notifications disabled", "err", err)
		} else {
			logger.Info("telegram notifications enabled", "username", notifier.Username())
			hooks = append(hooks, notifier.Hook())
		}
	}

	svc, err := campaign.NewService(campaign.Options{
		OutputDir:          cfg.OutputDir,
		Locales:            locales,
		Images:             images,
		Translator:         translator,
		Compositor:         compositor,
		Gate:               compliance.NewGate(compliance.BrandOverlayPresence{}),
		Tracker:            campaign.NewTracker(campaign.TrackerOptions{}),
		ProductConcurrency: cfg.ProductConcurrency,
		PrecheckMessage:    cfg.PrecheckMessage,
		Hooks:              hooks,
		HookTimeout:        cfg.HookTimeout,
		Logger:             logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Service = svc
	return a, nil
}

func openLog(dsn string, logger *slog.Logger) (*campaignlog.Store, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create campaign log dir: %w", err)
			}
		}
	}
	return campaignlog.Open(campaignlog.Options{DSN: dsn, Logger: logger})
}

func (a *App) Close() error {
	var errs []error
	if a.Log != nil {
		errs = append(errs, a.Log.Close())
	}
	return errors.Join(errs...)
}
