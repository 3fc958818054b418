// Package openai talks to the OpenAI REST API for chat completions and
// image generation.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"creative-automation/internal/imagegen"
	"creative-automation/internal/llm"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultImageModel = "dall-e-3"
	providerName      = "OpenAI"
)

type Options struct {
	APIKey     string
	BaseURL    string
	ImageModel string
	HTTPClient *http.Client
	Debug      bool
	Logger     *slog.Logger
}

type Client struct {
	rest       *resty.Client
	download   *resty.Client
	apiKey     string
	imageModel string
	logger     *slog.Logger
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	newRest := func() *resty.Client {
		if opts.HTTPClient != nil {
			return resty.NewWithClient(opts.HTTPClient)
		}
		return resty.New().SetTimeout(60 * time.Second)
	}

	rest := newRest()
	rest.SetBaseURL(baseURL).
		SetDebug(opts.Debug).
		SetAuthToken(opts.APIKey).
		SetHeader("Content-Type", "application/json")

	// Image URLs are pre-signed; they must not receive the API key.
	download := newRest().SetDebug(opts.Debug)

	return &Client{
		rest:       rest,
		download:   download,
		apiKey:     opts.APIKey,
		imageModel: imageModel,
		logger:     logger,
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func responseError(op string, resp *resty.Response, apiErr *apiError) error {
	msg := strings.TrimSpace(apiErr.Error.Message)
	if msg == "" {
		msg = strings.TrimSpace(resp.String())
	}
	return fmt.Errorf("openai %s %s: %s", op, resp.Status(), msg)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	if !c.Configured() {
		return llm.Completion{}, errors.New("openai api key is not configured")
	}

	var messages []chatMessage
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	var out chatResponse
	var apiErr apiError
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       req.Model,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return llm.Completion{}, fmt.Errorf("openai chat request: %w", err)
	}
	if resp.IsError() {
		return llm.Completion{}, responseError("chat", resp, &apiErr)
	}
	if len(out.Choices) == 0 {
		return llm.Completion{}, errors.New("openai chat returned no choices")
	}

	model := out.Model
	if model == "" {
		model = "unknown"
	}

	return llm.Completion{
		Text: strings.TrimSpace(out.Choices[0].Message.Content),
		Usage: llm.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}

func (c *Client) Name() string { return providerName }

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	N       int    `json:"n"`
}

type imageResponse struct {
	Data []struct {
		URL     string `json:"url"`
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate asks for one image at the snapped size class, then downloads the
// returned URL.
func (c *Client) Generate(ctx context.Context, req imagegen.Request) ([]byte, imagegen.Metadata, error) {
	if !c.Configured() {
		return nil, imagegen.Metadata{}, imagegen.ErrNoFallbackAvailable
	}

	w, h := imagegen.SnapSize(req.Width, req.Height)
	size := fmt.Sprintf("%dx%d", w, h)
	started := time.Now()

	var out imageResponse
	var apiErr apiError
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(imageRequest{
			Model:   c.imageModel,
			Prompt:  req.Prompt,
			Size:    size,
			Quality: "standard",
			N:       1,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/images/generations")
	if err != nil {
		return nil, imagegen.Metadata{}, fmt.Errorf("openai image request: %w", err)
	}
	if resp.IsError() {
		return nil, imagegen.Metadata{}, responseError("images", resp, &apiErr)
	}
	if len(out.Data) == 0 {
		return nil, imagegen.Metadata{}, errors.New("openai images returned no data")
	}

	var img []byte
	switch {
	case out.Data[0].URL != "":
		img, err = c.Download(ctx, out.Data[0].URL)
	case out.Data[0].B64JSON != "":
		img, err = base64.StdEncoding.DecodeString(out.Data[0].B64JSON)
	default:
		err = errors.New("openai images returned neither url nor b64_json")
	}
	if err != nil {
		return nil, imagegen.Metadata{}, err
	}

	return img, imagegen.Metadata{
		Provider:       providerName,
		Model:          c.imageModel,
		GenerationTime: fmt.Sprintf("%.2fs", time.Since(started).Seconds()),
		Dimensions:     size,
		Quality:        "standard",
	}, nil
}

func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	resp, err := c.download.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("download image: %s", resp.Status())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, errors.New("download image: empty body")
	}
	return body, nil
}
