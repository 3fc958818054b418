package campaign_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-automation/internal/campaign"
	"creative-automation/internal/locale"
)

func validBrief() campaign.Brief {
	return campaign.Brief{
		Products: []string{"Safety Boots", "Hi-Vis Vest"},
		Country:  "US",
		Audience: "construction_workers",
		Message:  "Quality work gear for every job site",
	}
}

func TestBrief_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*campaign.Brief)
		field  string
	}{
		{"no products", func(b *campaign.Brief) { b.Products = nil }, "products"},
		{"blank product", func(b *campaign.Brief) { b.Products = []string{"Boots", "  "} }, "products"},
		{"duplicate slug", func(b *campaign.Brief) { b.Products = []string{"Safety Boots", "safety boots"} }, "products"},
		{"path product", func(b *campaign.Brief) { b.Products = []string{"../etc"} }, "products"},
		{"empty message", func(b *campaign.Brief) { b.Message = "   " }, "message"},
		{"negative steps", func(b *campaign.Brief) { b.NumInferenceSteps = -1 }, "generation"},
		{"unknown country", func(b *campaign.Brief) { b.Country = "Atlantis" }, "country_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := validBrief()
			tt.mutate(&b)

			_, err := b.Validate(locale.Default())
			require.Error(t, err)

			var ve *campaign.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestBrief_ValidateUnknownCountryUnwraps(t *testing.T) {
	b := validBrief()
	b.Country = "Narnia"

	_, err := b.Validate(locale.Default())
	assert.ErrorIs(t, err, locale.ErrUnknownLocation)
}

func TestBrief_ValidateResolvesAlias(t *testing.T) {
	b := validBrief()
	b.Country = "Germany"

	ctx, err := b.Validate(locale.Default())
	require.NoError(t, err)
	assert.Equal(t, "DE", ctx.Code)
}

func TestBrief_Params(t *testing.T) {
	seed := int64(99)
	b := validBrief()
	b.NoiseScheduler = "euler_a"
	b.Seed = &seed

	p := b.Params()
	assert.Equal(t, "euler_a", p.Scheduler)
	assert.Equal(t, 30, p.NumInferenceSteps)
	assert.Equal(t, 7.5, p.GuidanceScale)
	assert.Equal(t, "standard", p.Quality)
	assert.Equal(t, &seed, p.Seed)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "safety_boots", campaign.Slug("Safety Boots"))
	assert.Equal(t, "hi-vis_vest", campaign.Slug(" Hi-Vis Vest "))
}
