// Package api exposes the campaign pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"creative-automation/internal/apperr"
	"creative-automation/internal/audience"
	"creative-automation/internal/campaign"
	"creative-automation/internal/campaignlog"
	"creative-automation/internal/locale"
	"creative-automation/internal/respond"
)

const maxBriefBytes = 1 << 20

// Campaigns is the slice of campaign.Service the handlers use.
type Campaigns interface {
	Run(ctx context.Context, brief campaign.Brief) (*campaign.Result, error)
	Tracker() *campaign.Tracker
	OutputDir() string
}

type Options struct {
	Campaigns Campaigns
	Locales   *locale.Registry
	Audiences *audience.Catalog
	// Log is optional; without it the campaign list comes from the tracker.
	Log *campaignlog.Store
	// MaxConcurrent bounds campaigns running at once.
	MaxConcurrent  int
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Server struct {
	campaigns      Campaigns
	locales        *locale.Registry
	audiences      *audience.Catalog
	log            *campaignlog.Store
	sem            chan struct{}
	requestTimeout time.Duration
	logger         *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	locales := opts.Locales
	if locales == nil {
		locales = locale.Default()
	}
	audiences := opts.Audiences
	if audiences == nil {
		audiences = audience.Default()
	}
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 900 * time.Second
	}

	return &Server{
		campaigns:      opts.Campaigns,
		locales:        locales,
		audiences:      audiences,
		log:            opts.Log,
		sem:            make(chan struct{}, maxConcurrent),
		requestTimeout: timeout,
		logger:         logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(s.withLogging)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Post("/campaigns", s.handleGenerate)
		api.Get("/campaigns", s.handleListCampaigns)
		api.Get("/campaigns/{id}", s.handleGetCampaign)
		api.Get("/countries", s.handleCountries)
		api.Get("/audiences", s.handleAudiences)
		api.Get("/manifest", s.handleManifest)
		api.Get("/stats/countries", s.handleCountryStats)
	})

	// Paths used by the original web frontend.
	r.Post("/generate", s.handleGenerate)
	r.Get("/master-manifest", s.handleManifest)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond.OK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBriefBytes)

	var brief campaign.Brief
	if err := json.NewDecoder(r.Body).Decode(&brief); err != nil {
		respond.Error(w, r, s.logger, apperr.ValidationError("invalid brief JSON: "+err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		respond.Error(w, r, s.logger, apperr.Busy())
		return
	}
	defer func() { <-s.sem }()

	res, err := s.campaigns.Run(ctx, brief)
	if err != nil {
		respond.Error(w, r, s.logger, err)
		return
	}
	respond.OK(w, res)
}

type campaignView struct {
	Status   *campaign.Status           `json:"status,omitempty"`
	Artifact *campaign.CampaignArtifact `json:"artifact,omitempty"`
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var view campaignView
	if st, ok := s.campaigns.Tracker().Get(id); ok {
		view.Status = &st
		if st.State != campaign.StateFinalized {
			respond.OK(w, view)
			return
		}
	}

	artifact, err := campaign.LoadArtifact(s.campaigns.OutputDir(), id)
	if err != nil {
		respond.Error(w, r, s.logger, err)
		return
	}
	view.Artifact = artifact
	respond.OK(w, view)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			respond.Error(w, r, s.logger, apperr.ValidationError("limit must be between 1 and 200",
				apperr.FieldError{Field: "limit", Message: "out of range"}))
			return
		}
		limit = n
	}

	if s.log == nil {
		respond.OK(w, map[string]any{"campaigns": s.campaigns.Tracker().Recent(limit)})
		return
	}
	rows, err := s.log.Recent(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, s.logger, err)
		return
	}
	respond.OK(w, map[string]any{"campaigns": rows})
}

func (s *Server) handleCountries(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	region := strings.TrimSpace(r.URL.Query().Get("region"))

	var countries []locale.Country
	switch {
	case q != "":
		countries = s.locales.Search(q)
	case region != "":
		countries = s.locales.ByRegion(region)
	default:
		countries = s.locales.All()
	}
	if countries == nil {
		countries = []locale.Country{}
	}

	respond.OK(w, map[string]any{
		"countries": countries,
		"regions":   s.locales.Regions(),
		"total":     len(countries),
	})
}

func (s *Server) handleAudiences(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	audiences := s.audiences.All()
	if category != "" {
		audiences = s.audiences.ByCategory(category)
	}
	if audiences == nil {
		audiences = []audience.Descriptor{}
	}

	respond.OK(w, map[string]any{
		"audiences":  audiences,
		"categories": s.audiences.Categories(),
		"total":      len(audiences),
	})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	m, err := campaign.BuildManifest(s.campaigns.OutputDir())
	if err != nil {
		respond.Error(w, r, s.logger, err)
		return
	}
	respond.OK(w, m)
}

func (s *Server) handleCountryStats(w http.ResponseWriter, r *http.Request) {
	if s.log == nil {
		respond.Error(w, r, s.logger, apperr.NotFound("Campaign log"))
		return
	}
	totals, err := s.log.TotalsByCountry(r.Context())
	if err != nil {
		respond.Error(w, r, s.logger, err)
		return
	}
	respond.OK(w, map[string]any{"countries": totals})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", chimw.GetReqID(r.Context()),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}
