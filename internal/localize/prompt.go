package localize

import (
	"fmt"
	"strings"

	"creative-automation/internal/audience"
	"creative-automation/internal/locale"
)

const campaignStyle = "Style: professional marketing photography for work apparel brand"

// LocalizePrompt appends the country's cultural clause. Unresolvable
// countries fall back to the literal identifier.
func LocalizePrompt(prompt string, reg *locale.Registry, country string) string {
	if ctx, err := reg.Resolve(country); err == nil {
		return fmt.Sprintf("%s, %s culture, %s lifestyle", prompt, ctx.Name, ctx.Region)
	}
	return fmt.Sprintf("%s, %s culture and lifestyle", prompt, strings.TrimSpace(country))
}

// BuildCampaignPrompt composes the base image prompt for one product.
func BuildCampaignPrompt(message, product, audienceID string, ctx locale.Context) string {
	head, demographic := audience.Segment(audienceID)

	parts := []string{
		strings.TrimSpace(message),
		"Product: " + product,
		"Target audience: " + head,
	}
	if demographic != "" {
		parts = append(parts, "Demographic: "+demographic)
	}
	parts = append(parts,
		"Location: "+ctx.Name,
		"Language: "+ctx.Language,
		campaignStyle,
	)
	return strings.Join(parts, ". ")
}
