package imagegen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	Primary        Provider
	Fallback       Provider
	PrimaryTimeout time.Duration
	// PrimaryPerMinute throttles primary calls; zero disables throttling.
	PrimaryPerMinute int
	Logger           *slog.Logger
}

type Orchestrator struct {
	primary        Provider
	fallback       Provider
	primaryTimeout time.Duration
	limiter        *rate.Limiter
	logger         *slog.Logger
}

func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	timeout := opts.PrimaryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if opts.PrimaryPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.PrimaryPerMinute)), 1)
	}

	return &Orchestrator{
		primary:        opts.Primary,
		fallback:       opts.Fallback,
		primaryTimeout: timeout,
		limiter:        limiter,
		logger:         logger,
	}
}

// Generate returns one base image. The primary provider gets a short
// timeout; any primary error switches to the fallback at a snapped size.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, width, height int, params Params) ([]byte, Metadata, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, Metadata{}, errors.New("prompt is empty")
	}

	req := Request{Prompt: prompt, Width: width, Height: height, Params: params.WithDefaults()}

	primaryErr := errors.New("no primary provider configured")
	if o.primary != nil {
		img, meta, err := o.callPrimary(ctx, req)
		if err == nil {
			return img, meta, nil
		}
		primaryErr = err
		o.logger.Warn("primary image provider failed", "provider", o.primary.Name(), "error", err)
	}

	if o.fallback == nil {
		return nil, Metadata{}, &ProviderFailure{Primary: primaryErr, Fallback: ErrNoFallbackAvailable}
	}

	fw, fh := SnapSize(width, height)
	img, meta, err := o.fallback.Generate(ctx, Request{Prompt: prompt, Width: fw, Height: fh})
	if err != nil {
		o.logger.Error("fallback image provider failed", "provider", o.fallback.Name(), "error", err)
		return nil, Metadata{}, &ProviderFailure{Primary: primaryErr, Fallback: err}
	}

	meta.FallbackReason = primaryErr.Error()
	if o.primary != nil {
		meta.Attempts = []string{o.primary.Name(), o.fallback.Name()}
	} else {
		meta.Attempts = []string{o.fallback.Name()}
	}
	o.logger.Info("image generated by fallback provider", "provider", meta.Provider, "model", meta.Model, "elapsed", meta.GenerationTime)
	return img, meta, nil
}

func (o *Orchestrator) callPrimary(ctx context.Context, req Request) ([]byte, Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, o.primaryTimeout)
	defer cancel()

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, Metadata{}, err
		}
	}
	return o.primary.Generate(ctx, req)
}
