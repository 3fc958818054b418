package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"creative-automation/internal/compliance"
	"creative-automation/internal/compose"
	"creative-automation/internal/imagegen"
)

const (
	artifactName    = "response_artifact.json"
	timestampLayout = "20060102_150405"
	generatedLayout = "2006-01-02T15:04:05.000000"
)

type RequestEcho struct {
	Products    []string `json:"products"`
	CountryName string   `json:"country_name"`
	Audience    string   `json:"audience"`
	Message     string   `json:"message"`
	Assets      []string `json:"assets"`
}

func echo(b Brief) RequestEcho {
	return RequestEcho{
		Products:    b.Products,
		CountryName: b.Country,
		Audience:    b.Audience,
		Message:     b.Message,
		Assets:      b.Assets,
	}
}

type VariantArtifact struct {
	CampaignID  string          `json:"campaign_id"`
	Timestamp   string          `json:"timestamp"`
	Product     string          `json:"product"`
	AspectRatio string          `json:"aspect_ratio"`
	Request     RequestEcho     `json:"request"`
	Response    VariantResponse `json:"response"`
	Metadata    VariantMetadata `json:"metadata"`
}

type VariantResponse struct {
	CampaignID  string `json:"campaign_id"`
	Product     string `json:"product"`
	AspectRatio string `json:"aspect_ratio"`
	ImagePath   string `json:"image_path"`
}

type VariantMetadata struct {
	GeneratedAt       string              `json:"generated_at"`
	CampaignDirectory string              `json:"campaign_directory"`
	ProductDirectory  string              `json:"product_directory"`
	SizeDirectory     string              `json:"size_directory"`
	Width             int                 `json:"width"`
	Height            int                 `json:"height"`
	LocalizedMessage  string              `json:"localized_message"`
	Overlay           compose.OverlayInfo `json:"overlay"`
	ImageGeneration   imagegen.Metadata   `json:"image_generation"`
}

// Outputs maps product name to aspect tag to image path.
type Outputs map[string]map[string]string

type CampaignArtifact struct {
	CampaignID string           `json:"campaign_id"`
	Timestamp  string           `json:"timestamp"`
	Request    RequestEcho      `json:"request"`
	Response   CampaignResponse `json:"response"`
	Metadata   CampaignMetadata `json:"metadata"`
}

type CampaignResponse struct {
	CampaignID string             `json:"campaign_id"`
	Outputs    Outputs            `json:"outputs"`
	Compliance compliance.Verdict `json:"compliance"`
}

type CampaignMetadata struct {
	GeneratedAt       string                       `json:"generated_at"`
	CampaignDirectory string                       `json:"campaign_directory"`
	TotalProducts     int                          `json:"total_products"`
	TotalImages       int                          `json:"total_images"`
	Country           CountryMetadata              `json:"country"`
	Translation       TranslationMetadata          `json:"translation"`
	LLMUsage          LLMUsage                     `json:"llm_usage"`
	ImageGeneration   map[string]imagegen.Metadata `json:"image_generation"`
	CostUSD           float64                      `json:"cost_usd"`
}

type CountryMetadata struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Region        string `json:"region"`
	Language      string `json:"language"`
	LanguageCode  string `json:"language_code"`
	TextDirection string `json:"text_direction"`
}

type TranslationMetadata struct {
	Text            string `json:"text"`
	BackTranslation string `json:"back_translation,omitempty"`
	Translated      bool   `json:"translated"`
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
