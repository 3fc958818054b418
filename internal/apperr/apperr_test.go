package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creative-automation/internal/apperr"
	"creative-automation/internal/campaign"
	"creative-automation/internal/compliance"
	"creative-automation/internal/locale"
)

func TestFrom(t *testing.T) {
	verdict := compliance.Verdict{Status: compliance.Failed, Issues: []string{"x"}, Message: "Compliance check failed: x"}

	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", &campaign.ValidationError{Field: "message", Message: "message is required"}, "VALIDATION_ERROR", http.StatusBadRequest},
		{"unknown location", &locale.UnknownLocationError{Identifier: "Atlantis"}, "VALIDATION_ERROR", http.StatusBadRequest},
		{"compliance", &campaign.ComplianceFailure{CampaignID: "c1", Verdict: verdict}, "COMPLIANCE_FAILED", http.StatusBadRequest},
		{"not found", fmt.Errorf("load: %w", campaign.ErrCampaignNotFound), "NOT_FOUND", http.StatusNotFound},
		{"campaign", &campaign.Error{CampaignID: "c2", Err: errors.New("boom")}, "CAMPAIGN_FAILED", http.StatusInternalServerError},
		{"unknown", errors.New("disk"), "INTERNAL_ERROR", http.StatusInternalServerError},
		{"passthrough", apperr.Busy(), "BUSY", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ae := apperr.From(tt.err)
			require.NotNil(t, ae)
			assert.Equal(t, tt.code, ae.Code)
			assert.Equal(t, tt.status, ae.HTTPStatus)
		})
	}

	assert.Nil(t, apperr.From(nil))
}

func TestFrom_Meta(t *testing.T) {
	ae := apperr.From(&campaign.Error{CampaignID: "c2", Err: errors.New("boom")})
	assert.Equal(t, "c2", ae.Meta["campaign_id"])
	assert.Equal(t, "boom", ae.Meta["message"])

	ae = apperr.From(&campaign.ComplianceFailure{Verdict: compliance.Verdict{Status: compliance.Failed}})
	assert.NotContains(t, ae.Meta, "campaign_id")
	assert.Contains(t, ae.Meta, "compliance")

	ae = apperr.From(&campaign.ValidationError{Field: "products", Message: "at least one product is required"})
	require.Len(t, ae.Details, 1)
	assert.Equal(t, "products", ae.Details[0].Field)
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", apperr.NotFound("Campaign"))
	ae := apperr.As(wrapped)
	require.NotNil(t, ae)
	assert.Equal(t, "Campaign not found", ae.Message)
	assert.Nil(t, apperr.As(errors.New("plain")))
}
