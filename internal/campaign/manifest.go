package campaign

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	manifestName     = "master_manifest.json"
	manifestVersion  = "1.0.0"
	manifestDescribe = "Master manifest concatenating all campaign response artifacts"
)

var ErrCampaignNotFound = errors.New("campaign not found")

type Manifest struct {
	Info      ManifestInfo     `json:"manifest_info"`
	Campaigns []map[string]any `json:"campaigns"`
}

type ManifestInfo struct {
	GeneratedAt      string   `json:"generated_at"`
	TotalCampaigns   int      `json:"total_campaigns"`
	TotalImages      int      `json:"total_images"`
	TotalProducts    int      `json:"total_products"`
	UniqueCountries  []string `json:"unique_countries"`
	UniqueAudiences  []string `json:"unique_audiences"`
	GeneratorVersion string   `json:"generator_version"`
	Description      string   `json:"description"`
}

type foundArtifact struct {
	path    string
	modTime time.Time
	size    int64
}

// BuildManifest collects every campaign artifact under outputDir, newest
// first. Unreadable artifacts are kept as error entries.
func BuildManifest(outputDir string) (Manifest, error) {
	found, err := findArtifacts(outputDir)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{
		Info: ManifestInfo{
			GeneratedAt:      time.Now().Format(generatedLayout),
			UniqueCountries:  []string{},
			UniqueAudiences:  []string{},
			GeneratorVersion: manifestVersion,
			Description:      manifestDescribe,
		},
		Campaigns: []map[string]any{},
	}

	countries := make(map[string]struct{})
	audiences := make(map[string]struct{})

	for _, a := range found {
		meta := map[string]any{
			"file_path":          a.path,
			"file_size":          a.size,
			"last_modified":      a.modTime.Format(generatedLayout),
			"campaign_directory": filepath.Dir(a.path),
		}

		data, err := os.ReadFile(a.path)
		var raw map[string]any
		if err == nil {
			err = json.Unmarshal(data, &raw)
		}
		if err != nil {
			meta["error"] = true
			m.Campaigns = append(m.Campaigns, map[string]any{
				"error":              err.Error(),
				"file_path":          a.path,
				"_manifest_metadata": meta,
			})
			continue
		}

		var typed CampaignArtifact
		if err := json.Unmarshal(data, &typed); err == nil {
			for _, sizes := range typed.Response.Outputs {
				m.Info.TotalProducts++
				m.Info.TotalImages += len(sizes)
			}
			if typed.Request.CountryName != "" {
				countries[typed.Request.CountryName] = struct{}{}
			}
			if typed.Request.Audience != "" {
				audiences[typed.Request.Audience] = struct{}{}
			}
		}

		raw["_manifest_metadata"] = meta
		m.Campaigns = append(m.Campaigns, raw)
	}

	m.Info.TotalCampaigns = len(m.Campaigns)
	m.Info.UniqueCountries = sortedKeys(countries)
	m.Info.UniqueAudiences = sortedKeys(audiences)
	return m, nil
}

// WriteManifest builds the manifest and stores it at the root of outputDir.
func WriteManifest(outputDir string) (Manifest, string, error) {
	m, err := BuildManifest(outputDir)
	if err != nil {
		return Manifest{}, "", err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return Manifest{}, "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(outputDir, manifestName)
	if err := writeJSON(path, m); err != nil {
		return Manifest{}, "", err
	}
	return m, path, nil
}

// LoadArtifact reads the aggregate artifact of a finalized campaign.
func LoadArtifact(outputDir, campaignID string) (*CampaignArtifact, error) {
	if _, err := uuid.Parse(campaignID); err != nil {
		return nil, ErrCampaignNotFound
	}

	matches, err := filepath.Glob(filepath.Join(outputDir, "campaign_*_"+campaignID, artifactName))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrCampaignNotFound
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		return nil, err
	}
	var a CampaignArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", matches[0], err)
	}
	return &a, nil
}

func findArtifacts(outputDir string) ([]foundArtifact, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read output dir: %w", err)
	}

	var found []foundArtifact
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "campaign_") {
			continue
		}
		path := filepath.Join(outputDir, e.Name(), artifactName)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		found = append(found, foundArtifact{path: path, modTime: info.ModTime(), size: info.Size()})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].modTime.Equal(found[j].modTime) {
			return found[i].path > found[j].path
		}
		return found[i].modTime.After(found[j].modTime)
	})
	return found, nil
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
