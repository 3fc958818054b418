// Package campaignlog records finalized campaigns in a SQL table so recent
// runs can be listed without walking the output tree.
package campaignlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"creative-automation/internal/campaign"
)

// Campaign is one finalized campaign row.
type Campaign struct {
	ID               int64          `gorm:"primaryKey;autoIncrement" json:"-"`
	CampaignID       string         `gorm:"size:36;uniqueIndex" json:"campaign_id"`
	CreatedAt        time.Time      `json:"created_at"`
	Products         string         `gorm:"size:1024" json:"products"`
	Country          string         `gorm:"size:64;index" json:"country"`
	Audience         string         `gorm:"size:64;index" json:"audience"`
	Message          string         `gorm:"size:2048" json:"message"`
	Directory        string         `gorm:"size:512" json:"directory"`
	SquarePath       string         `gorm:"size:512" json:"square_path"`
	LandscapePath    string         `gorm:"size:512" json:"landscape_path"`
	PortraitPath     string         `gorm:"size:512" json:"portrait_path"`
	Outputs          datatypes.JSON `json:"outputs"`
	ComplianceStatus string         `gorm:"size:16" json:"compliance_status"`
	ComplianceIssues datatypes.JSON `json:"compliance_issues"`
	ImageProvider    string         `gorm:"size:64" json:"image_provider"`
	LLMModel         string         `gorm:"size:128" json:"llm_model"`
	TotalTokens      int            `json:"total_tokens"`
	TotalImages      int            `json:"total_images"`
	CostUSD          float64        `gorm:"type:decimal(10,6)" json:"cost_usd"`
}

func (Campaign) TableName() string { return "campaigns" }

type Options struct {
	// DSN is a sqlite data source, e.g. "campaigns.db" or ":memory:".
	DSN    string
	Logger *slog.Logger
}

type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dsn := opts.DSN
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open campaign log: %w", err)
	}
	if dsn == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Campaign{}); err != nil {
		return nil, fmt.Errorf("migrate campaign log: %w", err)
	}
	return &Store{db: db, logger: log}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores a finalized campaign. Recording the same campaign twice is
// an error.
func (s *Store) Record(ctx context.Context, brief campaign.Brief, res *campaign.Result) error {
	outputs, err := json.Marshal(res.Outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	issues, err := json.Marshal(res.Compliance.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}

	providers := make([]string, 0, len(res.Metadata.ImageGeneration))
	seen := make(map[string]bool)
	for _, p := range brief.Products {
		if m, ok := res.Metadata.ImageGeneration[p]; ok && !seen[m.Provider] {
			seen[m.Provider] = true
			providers = append(providers, m.Provider)
		}
	}

	// Paths of the first product's creatives, for quick previews.
	var first map[string]string
	if len(brief.Products) > 0 {
		first = res.Outputs[brief.Products[0]]
	}

	row := Campaign{
		CampaignID:       res.CampaignID,
		Products:         strings.Join(brief.Products, ", "),
		Country:          brief.Country,
		Audience:         brief.Audience,
		Message:          brief.Message,
		Directory:        res.Directory,
		SquarePath:       first["1:1"],
		LandscapePath:    first["16:9"],
		PortraitPath:     first["9:16"],
		Outputs:          datatypes.JSON(outputs),
		ComplianceStatus: string(res.Compliance.Status),
		ComplianceIssues: datatypes.JSON(issues),
		ImageProvider:    strings.Join(providers, ","),
		LLMModel:         res.Metadata.LLMUsage.Model,
		TotalTokens:      res.Metadata.LLMUsage.TotalTokens,
		TotalImages:      res.Metadata.TotalImages,
		CostUSD:          res.Metadata.CostUSD,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("record campaign %s: %w", res.CampaignID, err)
	}
	s.logger.Debug("campaign recorded", "campaign_id", res.CampaignID)
	return nil
}

// Hook adapts Record to a campaign finalize hook.
func (s *Store) Hook() campaign.FinalizeHook {
	return func(ctx context.Context, brief campaign.Brief, res *campaign.Result) error {
		return s.Record(ctx, brief, res)
	}
}

// Recent returns up to limit campaigns, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Campaign, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []Campaign
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return rows, nil
}

// Totals summarizes spend and volume per country.
type Totals struct {
	Country     string  `json:"country"`
	Campaigns   int64   `json:"campaigns"`
	TotalImages int64   `json:"total_images"`
	TotalTokens int64   `json:"total_tokens"`
	CostUSD     float64 `json:"cost_usd"`
}

func (s *Store) TotalsByCountry(ctx context.Context) ([]Totals, error) {
	var out []Totals
	err := s.db.WithContext(ctx).Model(&Campaign{}).
		Select("country, COUNT(*) AS campaigns, SUM(total_images) AS total_images, SUM(total_tokens) AS total_tokens, SUM(cost_usd) AS cost_usd").
		Group("country").
		Order("country").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("campaign totals: %w", err)
	}
	return out, nil
}
