package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-automation/internal/imagegen"
	"creative-automation/internal/llm"
	"creative-automation/internal/openai"
)

func TestComplete(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4.1-2025-04-14",
			"choices": [{"message": {"role": "assistant", "content": "  Hola mundo\nHello world  "}}],
			"usage": {"prompt_tokens": 100, "completion_tokens": 20, "total_tokens": 120}
		}`))
	}))
	defer srv.Close()

	client := openai.New(openai.Options{APIKey: "sk-test", BaseURL: srv.URL})
	out, err := client.Complete(context.Background(), llm.Request{
		Model: "gpt-4.1", System: "sys", User: "Hello world", MaxTokens: 150, Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1", body["model"])
	assert.EqualValues(t, 150, body["max_tokens"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

	assert.Equal(t, "Hola mundo\nHello world", out.Text)
	assert.Equal(t, llm.Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120, Model: "gpt-4.1-2025-04-14"}, out.Usage)
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": {"message": "model not found", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := openai.New(openai.Options{APIKey: "sk", BaseURL: srv.URL})
	_, err := client.Complete(context.Background(), llm.Request{Model: "gpt-9", User: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestComplete_NotConfigured(t *testing.T) {
	client := openai.New(openai.Options{})
	assert.False(t, client.Configured())

	_, err := client.Complete(context.Background(), llm.Request{User: "x"})
	require.Error(t, err)
}

func TestGenerate_SnapsSizeAndDownloads(t *testing.T) {
	var gotSize, downloadAuth string
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/images/generations", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotSize, _ = req["size"].(string)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": [{"url": "` + srv.URL + `/blob/img.png"}]}`))
	})
	mux.HandleFunc("/blob/img.png", func(w http.ResponseWriter, r *http.Request) {
		downloadAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("image-bytes"))
	})

	client := openai.New(openai.Options{APIKey: "sk", BaseURL: srv.URL})
	img, meta, err := client.Generate(context.Background(), imagegen.Request{Prompt: "boots", Width: 576, Height: 1024})
	require.NoError(t, err)

	assert.Equal(t, "1024x1792", gotSize)
	assert.Empty(t, downloadAuth)
	assert.Equal(t, []byte("image-bytes"), img)
	assert.Equal(t, "OpenAI", meta.Provider)
	assert.Equal(t, "dall-e-3", meta.Model)
	assert.Equal(t, "1024x1792", meta.Dimensions)
	assert.Equal(t, "standard", meta.Quality)
}

func TestGenerate_WithoutKeyIsNoFallback(t *testing.T) {
	client := openai.New(openai.Options{})

	_, _, err := client.Generate(context.Background(), imagegen.Request{Prompt: "boots", Width: 1, Height: 1})
	assert.ErrorIs(t, err, imagegen.ErrNoFallbackAvailable)
}
