package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoFallbackAvailable = errors.New("primary image provider failed and no fallback provider is configured")

// Params is the sampling parameter set forwarded to the primary provider.
type Params struct {
	// Model overrides the primary provider's configured model.
	Model             string  `json:"model,omitempty"`
	Quality           string  `json:"quality,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	Scheduler         string  `json:"scheduler,omitempty"`
	UNetBackbone      string  `json:"unet_backbone,omitempty"`
	VAE               string  `json:"vae,omitempty"`
	Seed              *int64  `json:"seed,omitempty"`
}

func DefaultParams() Params {
	return Params{
		Quality:           "standard",
		NumInferenceSteps: 30,
		GuidanceScale:     7.5,
		Scheduler:         "ddim",
		UNetBackbone:      "default",
		VAE:               "default",
	}
}

// WithDefaults fills zero fields from DefaultParams.
func (p Params) WithDefaults() Params {
	d := DefaultParams()
	if strings.TrimSpace(p.Quality) == "" {
		p.Quality = d.Quality
	}
	if p.NumInferenceSteps <= 0 {
		p.NumInferenceSteps = d.NumInferenceSteps
	}
	if p.GuidanceScale <= 0 {
		p.GuidanceScale = d.GuidanceScale
	}
	if strings.TrimSpace(p.Scheduler) == "" {
		p.Scheduler = d.Scheduler
	}
	if strings.TrimSpace(p.UNetBackbone) == "" {
		p.UNetBackbone = d.UNetBackbone
	}
	if strings.TrimSpace(p.VAE) == "" {
		p.VAE = d.VAE
	}
	return p
}

type Request struct {
	Prompt string
	Width  int
	Height int
	Params Params
}

type Metadata struct {
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	GenerationTime string   `json:"generation_time"`
	Dimensions     string   `json:"dimensions"`
	Quality        string   `json:"quality,omitempty"`
	InferenceSteps int      `json:"inference_steps,omitempty"`
	GuidanceScale  float64  `json:"guidance_scale,omitempty"`
	Scheduler      string   `json:"scheduler,omitempty"`
	UNetBackbone   string   `json:"unet_backbone,omitempty"`
	VAE            string   `json:"vae,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
	Attempts       []string `json:"attempts,omitempty"`
}

type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) ([]byte, Metadata, error)
}

// ProviderFailure carries the causes from every provider that was tried.
type ProviderFailure struct {
	Primary  error
	Fallback error
}

func (e *ProviderFailure) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("image generation failed: primary: %v", e.Primary)
	}
	return fmt.Sprintf("image generation failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *ProviderFailure) Unwrap() []error {
	var errs []error
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}

// SnapSize maps an arbitrary size onto the three sizes fixed-size providers
// accept, by orientation only.
func SnapSize(width, height int) (int, int) {
	switch {
	case width == height:
		return 1024, 1024
	case width > height:
		return 1792, 1024
	default:
		return 1024, 1792
	}
}
