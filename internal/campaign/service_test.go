package campaign_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-automation/internal/campaign"
	"creative-automation/internal/compliance"
	"creative-automation/internal/compose"
	"creative-automation/internal/imagegen"
	"creative-automation/internal/llm"
	"creative-automation/internal/locale"
	"creative-automation/internal/localize"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeImages struct {
	mu      sync.Mutex
	img     []byte
	err     error
	calls   atomic.Int32
	prompts []string
}

func (f *fakeImages) Generate(_ context.Context, prompt string, _, _ int, _ imagegen.Params) ([]byte, imagegen.Metadata, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.err != nil {
		return nil, imagegen.Metadata{}, f.err
	}
	return f.img, imagegen.Metadata{Provider: "Fake", Model: "fake-sdxl", Dimensions: "1024x1024"}, nil
}

type fakeTranslator struct {
	calls atomic.Int32
	out   localize.Translation
}

func (f *fakeTranslator) TranslateMessage(_ context.Context, message string, loc locale.Context, _ string) localize.Translation {
	f.calls.Add(1)
	if f.out.Text == "" {
		return localize.Translation{Text: message, Language: loc.Language}
	}
	return f.out
}

type countingOverlay struct {
	calls atomic.Int32
	err   error
}

func (c *countingOverlay) ApplyFile(string, string, locale.Context) (compose.OverlayInfo, error) {
	c.calls.Add(1)
	return compose.OverlayInfo{Font: "fake"}, c.err
}

type fixture struct {
	dir        string
	images     *fakeImages
	translator *fakeTranslator
	overlay    *countingOverlay
	svc        *campaign.Service
}

func newFixture(t *testing.T, mutate func(*campaign.Options)) *fixture {
	t.Helper()
	f := &fixture{
		dir:        t.TempDir(),
		images:     &fakeImages{img: pngBytes(t, 128, 128)},
		translator: &fakeTranslator{},
		overlay:    &countingOverlay{},
	}
	opts := campaign.Options{
		OutputDir:       f.dir,
		Images:          f.images,
		Translator:      f.translator,
		Compositor:      f.overlay,
		PrecheckMessage: true,
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := campaign.NewService(opts)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func countFiles(t *testing.T, root, suffix string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func campaignDirs(t *testing.T, root string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(root, "campaign_*"))
	require.NoError(t, err)
	return matches
}

func TestRun_TwoProductsProducesSixImages(t *testing.T) {
	f := newFixture(t, func(o *campaign.Options) {
		o.Compositor = compose.New(compose.Options{})
	})

	res, err := f.svc.Run(context.Background(), validBrief())
	require.NoError(t, err)

	assert.Equal(t, 6, countFiles(t, f.dir, ".png"))
	assert.Equal(t, 6, countFiles(t, f.dir, ".json")-1)
	assert.EqualValues(t, 2, f.images.calls.Load())

	dirs := campaignDirs(t, f.dir)
	require.Len(t, dirs, 1)
	assert.Regexp(t, `campaign_\d{8}_\d{6}_`+res.CampaignID+`$`, dirs[0])
	assert.Equal(t, dirs[0], res.Directory)

	require.Contains(t, res.Outputs, "Safety Boots")
	boots := res.Outputs["Safety Boots"]
	assert.Equal(t, filepath.Join(dirs[0], "safety_boots", "16x9", "image_16x9.png"), boots["16:9"])
	assert.Len(t, boots, 3)

	assert.Equal(t, compliance.Approved, res.Compliance.Status)
	assert.Equal(t, 6, res.Metadata.TotalImages)
	assert.Equal(t, 2, res.Metadata.TotalProducts)
	assert.Equal(t, "none", res.Metadata.LLMUsage.Model)
	assert.Zero(t, res.Metadata.CostUSD)

	var artifact campaign.CampaignArtifact
	data, err := os.ReadFile(filepath.Join(dirs[0], "response_artifact.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &artifact))
	assert.Equal(t, res.CampaignID, artifact.CampaignID)
	assert.Equal(t, "US", artifact.Request.CountryName)
	assert.Equal(t, 6, artifact.Metadata.TotalImages)
	assert.Equal(t, "ltr", artifact.Metadata.Country.TextDirection)

	var variant campaign.VariantArtifact
	data, err = os.ReadFile(filepath.Join(dirs[0], "hi-vis_vest", "9x16", "response_artifact_9x16.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &variant))
	assert.Equal(t, "9:16", variant.AspectRatio)
	assert.Equal(t, "Hi-Vis Vest", variant.Product)
	assert.Equal(t, filepath.Join(dirs[0], "hi-vis_vest", "9x16"), variant.Metadata.SizeDirectory)
	assert.Equal(t, "Fake", variant.Metadata.ImageGeneration.Provider)

	st, ok := f.svc.Tracker().Get(res.CampaignID)
	require.True(t, ok)
	assert.Equal(t, campaign.StateFinalized, st.State)
	assert.Equal(t, 2, st.CompletedProducts)
}

func TestRun_PromptCarriesLocalization(t *testing.T) {
	f := newFixture(t, nil)
	b := validBrief()
	b.Products = []string{"Safety Boots"}

	_, err := f.svc.Run(context.Background(), b)
	require.NoError(t, err)

	require.Len(t, f.images.prompts, 1)
	assert.True(t, strings.HasPrefix(f.images.prompts[0], "Quality work gear for every job site. Product: Safety Boots."))
	assert.True(t, strings.HasSuffix(f.images.prompts[0], ", United States culture, North America lifestyle"))
}

func TestRun_ShortMessageRejectedBeforeProviders(t *testing.T) {
	f := newFixture(t, nil)
	b := validBrief()
	b.Country = "CR"
	b.Message = "Hola!"

	_, err := f.svc.Run(context.Background(), b)
	require.Error(t, err)

	var cf *campaign.ComplianceFailure
	require.ErrorAs(t, err, &cf)
	assert.Empty(t, cf.CampaignID)
	assert.Contains(t, cf.Verdict.Issues, "Message too short (minimum 10 characters required)")

	assert.Zero(t, f.images.calls.Load())
	assert.Zero(t, f.translator.calls.Load())
	assert.Empty(t, campaignDirs(t, f.dir))
}

func TestRun_UnknownCountryRejected(t *testing.T) {
	f := newFixture(t, nil)
	b := validBrief()
	b.Country = "Atlantis"

	_, err := f.svc.Run(context.Background(), b)
	assert.ErrorIs(t, err, locale.ErrUnknownLocation)
	assert.Zero(t, f.images.calls.Load())
	assert.Empty(t, campaignDirs(t, f.dir))
}

func TestRun_ComplianceFailureRemovesEverything(t *testing.T) {
	f := newFixture(t, func(o *campaign.Options) { o.PrecheckMessage = false })
	b := validBrief()
	b.Message = "Damn good boots for every job site"

	_, err := f.svc.Run(context.Background(), b)
	require.Error(t, err)

	var cf *campaign.ComplianceFailure
	require.ErrorAs(t, err, &cf)
	assert.NotEmpty(t, cf.CampaignID)
	assert.Equal(t, compliance.Failed, cf.Verdict.Status)

	// Variants were written before the gate ran.
	assert.EqualValues(t, 6, f.overlay.calls.Load())
	assert.Empty(t, campaignDirs(t, f.dir))

	st, ok := f.svc.Tracker().Get(cf.CampaignID)
	require.True(t, ok)
	assert.Equal(t, campaign.StateRolledBack, st.State)
}

type rejectImages struct{}

func (rejectImages) Name() string { return "reject" }

func (rejectImages) Check(paths []string) []string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return []string{"missing " + p}
		}
	}
	return []string{"brand mark not detected"}
}

func TestRun_ImageCheckFailureRollsBack(t *testing.T) {
	f := newFixture(t, func(o *campaign.Options) { o.Gate = compliance.NewGate(rejectImages{}) })

	_, err := f.svc.Run(context.Background(), validBrief())

	var cf *campaign.ComplianceFailure
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, []string{"brand mark not detected"}, cf.Verdict.Issues)
	assert.Empty(t, campaignDirs(t, f.dir))
}

func TestRun_ProviderFailureRollsBack(t *testing.T) {
	providerErr := &imagegen.ProviderFailure{Primary: errors.New("timeout"), Fallback: imagegen.ErrNoFallbackAvailable}
	f := newFixture(t, nil)
	f.images.err = providerErr

	_, err := f.svc.Run(context.Background(), validBrief())
	require.Error(t, err)

	var ce *campaign.Error
	require.ErrorAs(t, err, &ce)
	assert.NotEmpty(t, ce.CampaignID)
	assert.ErrorIs(t, err, imagegen.ErrNoFallbackAvailable)
	assert.Empty(t, campaignDirs(t, f.dir))
}

func TestRun_OverlayFailureAfterPartialWriteRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.overlay.err = errors.New("disk full")

	_, err := f.svc.Run(context.Background(), validBrief())

	var ce *campaign.Error
	require.ErrorAs(t, err, &ce)
	assert.Empty(t, campaignDirs(t, f.dir))
}

func TestRun_UndecodableImageRollsBack(t *testing.T) {
	f := newFixture(t, nil)
	f.images.img = []byte("<html>error page</html>")

	_, err := f.svc.Run(context.Background(), validBrief())

	var ce *campaign.Error
	require.ErrorAs(t, err, &ce)
	assert.Empty(t, campaignDirs(t, f.dir))
}

type slowPrimary struct{ calls atomic.Int32 }

func (s *slowPrimary) Name() string { return "Hugging Face" }

func (s *slowPrimary) Generate(ctx context.Context, _ imagegen.Request) ([]byte, imagegen.Metadata, error) {
	s.calls.Add(1)
	<-ctx.Done()
	return nil, imagegen.Metadata{}, ctx.Err()
}

type stubFallback struct {
	calls atomic.Int32
	img   []byte
}

func (s *stubFallback) Name() string { return "OpenAI" }

func (s *stubFallback) Generate(_ context.Context, req imagegen.Request) ([]byte, imagegen.Metadata, error) {
	s.calls.Add(1)
	return s.img, imagegen.Metadata{Provider: "OpenAI", Model: "dall-e-3", Dimensions: "1024x1024"}, nil
}

func TestRun_PrimaryTimeoutFallsBack(t *testing.T) {
	primary := &slowPrimary{}
	fallback := &stubFallback{img: pngBytes(t, 64, 64)}
	orch := imagegen.New(imagegen.Options{Primary: primary, Fallback: fallback, PrimaryTimeout: 20 * time.Millisecond})

	f := newFixture(t, func(o *campaign.Options) { o.Images = orch })
	b := validBrief()
	b.Products = []string{"Safety Boots"}

	res, err := f.svc.Run(context.Background(), b)
	require.NoError(t, err)

	assert.EqualValues(t, 1, primary.calls.Load())
	assert.EqualValues(t, 1, fallback.calls.Load())
	assert.Equal(t, "OpenAI", res.Metadata.ImageGeneration["Safety Boots"].Provider)
	assert.Equal(t, 3, countFiles(t, f.dir, ".png"))
}

func TestRun_LegacyAliasMatchesCode(t *testing.T) {
	f := newFixture(t, nil)
	f.translator.out = localize.Translation{
		Text:       "Qualitätsausrüstung für jede Baustelle",
		Translated: true,
		Usage:      llm.Usage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100, Model: "gpt-4o"},
	}

	b := validBrief()
	b.Products = []string{"Boots"}
	b.Country = "Germany"
	byAlias, err := f.svc.Run(context.Background(), b)
	require.NoError(t, err)

	b.Country = "DE"
	byCode, err := f.svc.Run(context.Background(), b)
	require.NoError(t, err)

	assert.Equal(t, byCode.Metadata.LLMUsage, byAlias.Metadata.LLMUsage)
	assert.InDelta(t, 0.036, byAlias.Metadata.CostUSD, 1e-9)
	assert.Len(t, campaignDirs(t, f.dir), 2)
}

func TestRun_HooksRunAfterFinalize(t *testing.T) {
	var seen []string
	f := newFixture(t, func(o *campaign.Options) {
		o.Hooks = []campaign.FinalizeHook{
			func(_ context.Context, _ campaign.Brief, r *campaign.Result) error {
				_, err := os.Stat(filepath.Join(r.Directory, "response_artifact.json"))
				require.NoError(t, err)
				seen = append(seen, "log")
				return errors.New("db locked")
			},
			func(_ context.Context, _ campaign.Brief, r *campaign.Result) error {
				seen = append(seen, "notify")
				return nil
			},
		}
	})

	_, err := f.svc.Run(context.Background(), validBrief())
	require.NoError(t, err)
	assert.Equal(t, []string{"log", "notify"}, seen)
}

func TestRun_SlowHookIsBounded(t *testing.T) {
	var hookErr error
	notified := false
	f := newFixture(t, func(o *campaign.Options) {
		o.HookTimeout = 20 * time.Millisecond
		o.Hooks = []campaign.FinalizeHook{
			func(ctx context.Context, _ campaign.Brief, _ *campaign.Result) error {
				_, ok := ctx.Deadline()
				require.True(t, ok)
				<-ctx.Done()
				hookErr = ctx.Err()
				return hookErr
			},
			func(ctx context.Context, _ campaign.Brief, _ *campaign.Result) error {
				notified = ctx.Err() == nil
				return nil
			},
		}
	})

	start := time.Now()
	_, err := f.svc.Run(context.Background(), validBrief())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, hookErr, context.DeadlineExceeded)
	assert.True(t, notified)
}

func TestRun_ParallelProducts(t *testing.T) {
	f := newFixture(t, func(o *campaign.Options) { o.ProductConcurrency = 3 })
	b := validBrief()
	b.Products = []string{"Boots", "Vest", "Gloves", "Helmet"}

	res, err := f.svc.Run(context.Background(), b)
	require.NoError(t, err)

	assert.Len(t, res.Outputs, 4)
	assert.Equal(t, 12, countFiles(t, f.dir, ".png"))
	assert.Equal(t, 12, res.Metadata.TotalImages)
}

func TestRun_CallerCancellationDoesNotAbort(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Run(ctx, validBrief())
	require.NoError(t, err)
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := campaign.NewService(campaign.Options{})
	assert.Error(t, err)

	_, err = campaign.NewService(campaign.Options{OutputDir: t.TempDir()})
	assert.Error(t, err)
}
