package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.PrimaryTimeout)
	assert.Equal(t, 30*time.Second, cfg.HookTimeout)
	assert.Equal(t, 180*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "openai", cfg.TranslatorProvider)
	assert.Equal(t, "gpt-4.1", cfg.TranslationModel)
	assert.Equal(t, "gpt-4o", cfg.TranslationFallback)
	assert.Equal(t, 1, cfg.ProductConcurrency)
	assert.Equal(t, 350, cfg.BrandSize)
	assert.True(t, cfg.PrecheckMessage)
}

func TestLoad_SecondsAndClamping(t *testing.T) {
	t.Setenv("PRIMARY_TIMEOUT_SECONDS", "12")
	t.Setenv("HOOK_TIMEOUT_SECONDS", "5")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "1m")
	t.Setenv("PRODUCT_CONCURRENCY", "-3")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.PrimaryTimeout)
	assert.Equal(t, 5*time.Second, cfg.HookTimeout)
	assert.Equal(t, time.Minute, cfg.HTTPTimeout)
	assert.Equal(t, 1, cfg.ProductConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_GeminiTranslator(t *testing.T) {
	t.Setenv("TRANSLATOR_PROVIDER", "gemini")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("GEMINI_API_KEY", "key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-flash", cfg.TranslationModel)
	assert.Equal(t, "gemini-2.0-flash", cfg.TranslationFallback)
}

func TestLoad_UnknownTranslator(t *testing.T) {
	t.Setenv("TRANSLATOR_PROVIDER", "bard")

	_, err := Load()
	assert.Error(t, err)
}
