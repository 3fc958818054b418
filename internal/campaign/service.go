// Package campaign runs a brief through generation, compositing and the
// compliance gate, and owns the on-disk artifact tree of each campaign.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"creative-automation/internal/compliance"
	"creative-automation/internal/compose"
	"creative-automation/internal/imagegen"
	"creative-automation/internal/locale"
	"creative-automation/internal/localize"
)

const (
	baseWidth  = 1024
	baseHeight = 1024
)

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, width, height int, params imagegen.Params) ([]byte, imagegen.Metadata, error)
}

type MessageTranslator interface {
	TranslateMessage(ctx context.Context, message string, loc locale.Context, audienceID string) localize.Translation
}

type Overlayer interface {
	ApplyFile(path, message string, loc locale.Context) (compose.OverlayInfo, error)
}

type Gate interface {
	CheckMessage(message string) compliance.Verdict
	Check(message string, paths []string) compliance.Verdict
}

// FinalizeHook runs after a campaign artifact is written. Hook errors are
// logged and never change the campaign outcome.
type FinalizeHook func(ctx context.Context, brief Brief, result *Result) error

type Options struct {
	OutputDir  string
	Locales    *locale.Registry
	Images     ImageGenerator
	Translator MessageTranslator
	Compositor Overlayer
	Gate       Gate
	Tracker    *Tracker
	// ProductConcurrency bounds products generated at once; 1 keeps the
	// sequential order.
	ProductConcurrency int
	// PrecheckMessage rejects non-compliant copy before any provider call.
	PrecheckMessage bool
	Hooks           []FinalizeHook
	// HookTimeout bounds each finalize hook. Zero means 30s.
	HookTimeout time.Duration
	Logger      *slog.Logger
}

type Service struct {
	outputDir   string
	locales     *locale.Registry
	images      ImageGenerator
	translator  MessageTranslator
	compositor  Overlayer
	gate        Gate
	tracker     *Tracker
	concurrency int
	precheck    bool
	hooks       []FinalizeHook
	hookTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

type Result struct {
	CampaignID string             `json:"campaign_id"`
	Outputs    Outputs            `json:"outputs"`
	Compliance compliance.Verdict `json:"compliance"`
	Metadata   ResultMetadata     `json:"metadata"`
	Directory  string             `json:"-"`
}

type ResultMetadata struct {
	GeneratedAt     string                       `json:"generated_at"`
	TotalProducts   int                          `json:"total_products"`
	TotalImages     int                          `json:"total_images"`
	LLMUsage        LLMUsage                     `json:"llm_usage"`
	ImageGeneration map[string]imagegen.Metadata `json:"image_generation"`
	CostUSD         float64                      `json:"cost_usd"`
}

func NewService(opts Options) (*Service, error) {
	if opts.OutputDir == "" {
		return nil, errors.New("output dir is required")
	}
	if opts.Images == nil || opts.Translator == nil || opts.Compositor == nil {
		return nil, errors.New("image generator, translator and compositor are required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	locales := opts.Locales
	if locales == nil {
		locales = locale.Default()
	}

	gate := opts.Gate
	if gate == nil {
		gate = compliance.NewGate()
	}

	tracker := opts.Tracker
	if tracker == nil {
		tracker = NewTracker(TrackerOptions{})
	}

	concurrency := opts.ProductConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	hookTimeout := opts.HookTimeout
	if hookTimeout <= 0 {
		hookTimeout = 30 * time.Second
	}

	return &Service{
		outputDir:   opts.OutputDir,
		locales:     locales,
		images:      opts.Images,
		translator:  opts.Translator,
		compositor:  opts.Compositor,
		gate:        gate,
		tracker:     tracker,
		concurrency: concurrency,
		precheck:    opts.PrecheckMessage,
		hooks:       opts.Hooks,
		hookTimeout: hookTimeout,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (s *Service) Tracker() *Tracker { return s.tracker }

func (s *Service) OutputDir() string { return s.outputDir }

// campaignRun is the mutable state of one Run call.
type campaignRun struct {
	id          string
	timestamp   string
	dir         string
	brief       Brief
	loc         locale.Context
	params      imagegen.Params
	translation localize.Translation
	logger      *slog.Logger

	mu      sync.Mutex
	outputs Outputs
	images  map[string]imagegen.Metadata
	paths   map[string][]string
}

// Run executes a brief end to end. Either a complete campaign directory is
// left on disk and a Result returned, or the directory is removed and an
// error returned.
func (s *Service) Run(ctx context.Context, brief Brief) (*Result, error) {
	loc, err := brief.Validate(s.locales)
	if err != nil {
		return nil, err
	}

	if s.precheck {
		if v := s.gate.CheckMessage(brief.Message); !v.Approved() {
			s.logger.Warn("brief rejected by message pre-check", "issues", v.Issues)
			return nil, &ComplianceFailure{Verdict: v}
		}
	}

	// Provider calls finish even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	now := s.now()
	id := uuid.NewString()
	run := &campaignRun{
		id:        id,
		timestamp: now.Format(timestampLayout),
		brief:     brief,
		loc:       loc,
		params:    brief.Params(),
		logger:    s.logger.With("campaign_id", id),
		outputs:   make(Outputs, len(brief.Products)),
		images:    make(map[string]imagegen.Metadata, len(brief.Products)),
		paths:     make(map[string][]string, len(brief.Products)),
	}
	run.dir = filepath.Join(s.outputDir, fmt.Sprintf("campaign_%s_%s", run.timestamp, id))

	if err := os.MkdirAll(run.dir, 0o755); err != nil {
		return nil, &Error{CampaignID: id, Err: fmt.Errorf("create campaign directory: %w", err)}
	}
	s.tracker.Start(id, run.dir, len(brief.Products))
	run.logger.Info("campaign started", "dir", run.dir, "products", len(brief.Products), "country", loc.Code)

	result, err := s.execute(ctx, run)
	if err != nil {
		s.rollback(run, err)
		var cf *ComplianceFailure
		if errors.As(err, &cf) {
			return nil, err
		}
		return nil, &Error{CampaignID: id, Err: err}
	}

	s.tracker.Advance(id, StateFinalized)
	run.logger.Info("campaign finalized",
		"images", result.Metadata.TotalImages,
		"cost_usd", result.Metadata.CostUSD,
		"compliance", result.Compliance.Status,
	)

	for _, hook := range s.hooks {
		s.runHook(ctx, run, hook, result)
	}
	return result, nil
}

func (s *Service) runHook(ctx context.Context, run *campaignRun, hook FinalizeHook, result *Result) {
	hctx, cancel := context.WithTimeout(ctx, s.hookTimeout)
	defer cancel()
	if err := hook(hctx, run.brief, result); err != nil {
		run.logger.Error("finalize hook failed", "error", err)
	}
}

func (s *Service) execute(ctx context.Context, run *campaignRun) (*Result, error) {
	s.tracker.Advance(run.id, StateGenerating)

	run.translation = s.translator.TranslateMessage(ctx, run.brief.Message, run.loc, run.brief.Audience)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, product := range run.brief.Products {
		g.Go(func() error {
			if err := s.runProduct(gctx, run, product); err != nil {
				return fmt.Errorf("product %q: %w", product, err)
			}
			s.tracker.ProductDone(run.id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.tracker.Advance(run.id, StateComplianceCheck)

	var allPaths []string
	for _, product := range run.brief.Products {
		allPaths = append(allPaths, run.paths[product]...)
	}

	verdict := s.gate.Check(run.brief.Message, allPaths)
	if !verdict.Approved() {
		return nil, &ComplianceFailure{CampaignID: run.id, Verdict: verdict}
	}

	return s.finalize(run, verdict)
}

func (s *Service) runProduct(ctx context.Context, run *campaignRun, product string) error {
	logger := run.logger.With("product", product)

	prompt := localize.LocalizePrompt(
		localize.BuildCampaignPrompt(run.brief.Message, product, run.brief.Audience, run.loc),
		s.locales, run.brief.Country,
	)

	raw, meta, err := s.images.Generate(ctx, prompt, baseWidth, baseHeight, run.params)
	if err != nil {
		return err
	}
	base, err := compose.Decode(raw)
	if err != nil {
		return err
	}
	logger.Info("base image generated", "provider", meta.Provider, "model", meta.Model, "elapsed", meta.GenerationTime)

	productDir := filepath.Join(run.dir, Slug(product))
	outputs := make(map[string]string, 3)
	var paths []string

	for _, v := range compose.Variants() {
		if err := ctx.Err(); err != nil {
			return err
		}

		sizeDir := filepath.Join(productDir, v.Dir)
		if err := os.MkdirAll(sizeDir, 0o755); err != nil {
			return fmt.Errorf("create %s directory: %w", v.Dir, err)
		}

		imagePath := filepath.Join(sizeDir, v.FileName())
		if err := compose.WriteVariant(base, v, imagePath); err != nil {
			return err
		}
		overlay, err := s.compositor.ApplyFile(imagePath, run.translation.Text, run.loc)
		if err != nil {
			return fmt.Errorf("overlay %s: %w", v.Tag, err)
		}

		artifact := VariantArtifact{
			CampaignID:  run.id,
			Timestamp:   run.timestamp,
			Product:     product,
			AspectRatio: v.Tag,
			Request:     echo(run.brief),
			Response: VariantResponse{
				CampaignID:  run.id,
				Product:     product,
				AspectRatio: v.Tag,
				ImagePath:   imagePath,
			},
			Metadata: VariantMetadata{
				GeneratedAt:       s.now().Format(generatedLayout),
				CampaignDirectory: run.dir,
				ProductDirectory:  productDir,
				SizeDirectory:     sizeDir,
				Width:             v.Width,
				Height:            v.Height,
				LocalizedMessage:  run.translation.Text,
				Overlay:           overlay,
				ImageGeneration:   meta,
			},
		}
		if err := writeJSON(filepath.Join(sizeDir, v.ArtifactName()), artifact); err != nil {
			return err
		}

		outputs[v.Tag] = imagePath
		paths = append(paths, imagePath)
		logger.Debug("variant written", "aspect_ratio", v.Tag, "path", imagePath)
	}

	run.mu.Lock()
	run.outputs[product] = outputs
	run.images[product] = meta
	run.paths[product] = paths
	run.mu.Unlock()
	return nil
}

func (s *Service) finalize(run *campaignRun, verdict compliance.Verdict) (*Result, error) {
	var ledger usageLedger
	ledger.add(run.translation.Usage)
	usage, cost := ledger.summary()

	totalImages := 0
	for _, sizes := range run.outputs {
		totalImages += len(sizes)
	}
	generatedAt := s.now().Format(generatedLayout)

	artifact := CampaignArtifact{
		CampaignID: run.id,
		Timestamp:  run.timestamp,
		Request:    echo(run.brief),
		Response: CampaignResponse{
			CampaignID: run.id,
			Outputs:    run.outputs,
			Compliance: verdict,
		},
		Metadata: CampaignMetadata{
			GeneratedAt:       generatedAt,
			CampaignDirectory: run.dir,
			TotalProducts:     len(run.brief.Products),
			TotalImages:       totalImages,
			Country: CountryMetadata{
				Code:          run.loc.Code,
				Name:          run.loc.Name,
				Region:        run.loc.Region,
				Language:      run.loc.Language,
				LanguageCode:  run.loc.LanguageCode,
				TextDirection: run.loc.Direction(),
			},
			Translation: TranslationMetadata{
				Text:            run.translation.Text,
				BackTranslation: run.translation.BackTranslation,
				Translated:      run.translation.Translated,
			},
			LLMUsage:        usage,
			ImageGeneration: run.images,
			CostUSD:         cost,
		},
	}
	if err := writeJSON(filepath.Join(run.dir, artifactName), artifact); err != nil {
		return nil, err
	}

	return &Result{
		CampaignID: run.id,
		Outputs:    run.outputs,
		Compliance: verdict,
		Metadata: ResultMetadata{
			GeneratedAt:     generatedAt,
			TotalProducts:   len(run.brief.Products),
			TotalImages:     totalImages,
			LLMUsage:        usage,
			ImageGeneration: run.images,
			CostUSD:         cost,
		},
		Directory: run.dir,
	}, nil
}

func (s *Service) rollback(run *campaignRun, cause error) {
	if err := os.RemoveAll(run.dir); err != nil {
		run.logger.Error("rollback failed", "dir", run.dir, "error", err)
	}
	s.tracker.RolledBack(run.id, cause)
	run.logger.Warn("campaign rolled back", "error", cause)
}
