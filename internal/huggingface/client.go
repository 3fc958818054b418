// Package huggingface calls a hosted text-to-image model on the Hugging Face
// inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"creative-automation/internal/imagegen"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"
	defaultModel   = "stabilityai/stable-diffusion-xl-base-1.0"
	providerName   = "Hugging Face"
)

type Options struct {
	Token      string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	token      string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		token:      opts.Token,
		baseURL:    baseURL,
		model:      model,
		httpClient: opts.HTTPClient,
		logger:     logger,
	}
}

func (c *Client) Name() string { return providerName }

type payload struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumInferenceSteps int     `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	Scheduler         string  `json:"scheduler"`
	UNetBackbone      string  `json:"unet_backbone"`
	VAE               string  `json:"vae"`
	Seed              *int64  `json:"seed,omitempty"`
}

func (c *Client) Generate(ctx context.Context, req imagegen.Request) ([]byte, imagegen.Metadata, error) {
	if c.httpClient == nil {
		return nil, imagegen.Metadata{}, errors.New("http client is nil")
	}
	if strings.TrimSpace(c.token) == "" {
		return nil, imagegen.Metadata{}, errors.New("hugging face token is not configured")
	}

	params := req.Params.WithDefaults()
	model := c.model
	if m := strings.TrimSpace(params.Model); m != "" {
		model = m
	}
	body, err := json.Marshal(payload{
		Inputs: req.Prompt,
		Parameters: parameters{
			Width:             req.Width,
			Height:            req.Height,
			NumInferenceSteps: params.NumInferenceSteps,
			GuidanceScale:     params.GuidanceScale,
			Scheduler:         params.Scheduler,
			UNetBackbone:      params.UNetBackbone,
			VAE:               params.VAE,
			Seed:              params.Seed,
		},
	})
	if err != nil {
		return nil, imagegen.Metadata{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", c.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, imagegen.Metadata{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("authorization", "Bearer "+c.token)

	started := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, imagegen.Metadata{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, imagegen.Metadata{}, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, imagegen.Metadata{}, fmt.Errorf("hugging face API %s: %s", httpResp.Status, truncate(strings.TrimSpace(string(raw)), 300))
	}
	if len(raw) == 0 {
		return nil, imagegen.Metadata{}, errors.New("hugging face returned an empty image")
	}
	elapsed := time.Since(started)

	c.logger.Debug("hugging face image generated", "model", model, "bytes", len(raw), "elapsed", elapsed)

	return raw, imagegen.Metadata{
		Provider:       providerName,
		Model:          model,
		GenerationTime: fmt.Sprintf("%.2fs", elapsed.Seconds()),
		Dimensions:     fmt.Sprintf("%dx%d", req.Width, req.Height),
		Quality:        params.Quality,
		InferenceSteps: params.NumInferenceSteps,
		GuidanceScale:  params.GuidanceScale,
		Scheduler:      params.Scheduler,
		UNetBackbone:   params.UNetBackbone,
		VAE:            params.VAE,
		Seed:           params.Seed,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
