package campaign

import (
	"errors"
	"fmt"
	"strings"

	"creative-automation/internal/imagegen"
	"creative-automation/internal/locale"
)

// Brief is the campaign request. The generation fields are optional
// overrides of the primary provider's sampling defaults.
type Brief struct {
	Products []string `json:"products"`
	Country  string   `json:"country_name"`
	Audience string   `json:"audience"`
	Message  string   `json:"message"`
	Assets   []string `json:"assets"`

	HFModel           string  `json:"hf_model,omitempty"`
	ImageQuality      string  `json:"image_quality,omitempty"`
	NoiseScheduler    string  `json:"noise_scheduler,omitempty"`
	UNetBackbone      string  `json:"unet_backbone,omitempty"`
	VAE               string  `json:"vae,omitempty"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
	Seed              *int64  `json:"seed,omitempty"`
}

func (b Brief) Params() imagegen.Params {
	return imagegen.Params{
		Model:             b.HFModel,
		Quality:           b.ImageQuality,
		NumInferenceSteps: b.NumInferenceSteps,
		GuidanceScale:     b.GuidanceScale,
		Scheduler:         b.NoiseScheduler,
		UNetBackbone:      b.UNetBackbone,
		VAE:               b.VAE,
		Seed:              b.Seed,
	}.WithDefaults()
}

// Slug is the directory name used for a product.
func Slug(product string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(product), " ", "_"))
}

// Validate checks the brief and resolves its country. It performs no I/O.
func (b Brief) Validate(reg *locale.Registry) (locale.Context, error) {
	if len(b.Products) == 0 {
		return locale.Context{}, &ValidationError{Field: "products", Message: "at least one product is required"}
	}

	seen := make(map[string]string, len(b.Products))
	for i, p := range b.Products {
		slug := Slug(p)
		switch {
		case slug == "":
			return locale.Context{}, &ValidationError{Field: "products", Message: fmt.Sprintf("product %d is empty", i)}
		case slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`):
			return locale.Context{}, &ValidationError{Field: "products", Message: fmt.Sprintf("product %q is not a valid directory name", p)}
		}
		if prev, dup := seen[slug]; dup {
			return locale.Context{}, &ValidationError{Field: "products", Message: fmt.Sprintf("products %q and %q share a directory", prev, p)}
		}
		seen[slug] = p
	}

	if strings.TrimSpace(b.Message) == "" {
		return locale.Context{}, &ValidationError{Field: "message", Message: "message is required"}
	}
	if b.GuidanceScale < 0 || b.NumInferenceSteps < 0 {
		return locale.Context{}, &ValidationError{Field: "generation", Message: "guidance scale and step count must not be negative"}
	}

	ctx, err := reg.Resolve(b.Country)
	if err != nil {
		var unknown *locale.UnknownLocationError
		if errors.As(err, &unknown) {
			return locale.Context{}, &ValidationError{
				Field:   "country_name",
				Message: fmt.Sprintf("invalid country_name: %s. Must be a valid country code or legacy region name", b.Country),
				Err:     err,
			}
		}
		return locale.Context{}, err
	}
	return ctx, nil
}
