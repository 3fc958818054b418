package huggingface_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-automation/internal/huggingface"
	"creative-automation/internal/imagegen"
)

func TestGenerate_SendsFullParameterSet(t *testing.T) {
	var got map[string]any
	var auth, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	client := huggingface.New(huggingface.Options{Token: "hf_x", BaseURL: srv.URL, Model: "acme/sdxl", HTTPClient: srv.Client()})

	seed := int64(7)
	img, meta, err := client.Generate(context.Background(), imagegen.Request{
		Prompt: "safety boots",
		Width:  1024,
		Height: 576,
		Params: imagegen.Params{Scheduler: "euler", Seed: &seed},
	})
	require.NoError(t, err)

	assert.Equal(t, "/models/acme/sdxl", path)
	assert.Equal(t, "Bearer hf_x", auth)
	assert.Equal(t, "safety boots", got["inputs"])

	params := got["parameters"].(map[string]any)
	assert.EqualValues(t, 1024, params["width"])
	assert.EqualValues(t, 576, params["height"])
	assert.EqualValues(t, 30, params["num_inference_steps"])
	assert.EqualValues(t, 7.5, params["guidance_scale"])
	assert.Equal(t, "euler", params["scheduler"])
	assert.Equal(t, "default", params["unet_backbone"])
	assert.EqualValues(t, 7, params["seed"])

	assert.Equal(t, []byte("png-bytes"), img)
	assert.Equal(t, "Hugging Face", meta.Provider)
	assert.Equal(t, "acme/sdxl", meta.Model)
	assert.Equal(t, "1024x576", meta.Dimensions)
	assert.Equal(t, "standard", meta.Quality)
	assert.Regexp(t, `^\d+\.\d{2}s$`, meta.GenerationTime)
}

func TestGenerate_OmitsSeedWhenUnset(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	client := huggingface.New(huggingface.Options{Token: "t", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, _, err := client.Generate(context.Background(), imagegen.Request{Prompt: "p", Width: 1, Height: 1})
	require.NoError(t, err)

	assert.NotContains(t, got["parameters"], "seed")
}

func TestGenerate_ModelOverride(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	client := huggingface.New(huggingface.Options{Token: "t", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, meta, err := client.Generate(context.Background(), imagegen.Request{
		Prompt: "p", Width: 1, Height: 1,
		Params: imagegen.Params{Model: "other/model", Quality: "hd"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/models/other/model", path)
	assert.Equal(t, "other/model", meta.Model)
	assert.Equal(t, "hd", meta.Quality)
}

func TestGenerate_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := huggingface.New(huggingface.Options{Token: "t", BaseURL: srv.URL, HTTPClient: srv.Client()})
	_, _, err := client.Generate(context.Background(), imagegen.Request{Prompt: "p", Width: 1, Height: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerate_MissingToken(t *testing.T) {
	client := huggingface.New(huggingface.Options{HTTPClient: http.DefaultClient})
	_, _, err := client.Generate(context.Background(), imagegen.Request{Prompt: "p"})
	require.Error(t, err)
}
