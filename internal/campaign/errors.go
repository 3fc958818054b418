package campaign

import (
	"fmt"

	"creative-automation/internal/compliance"
)

type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid brief: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ComplianceFailure is returned when the gate rejects a campaign. CampaignID
// is empty when the message pre-check rejected it before allocation.
type ComplianceFailure struct {
	CampaignID string
	Verdict    compliance.Verdict
}

func (e *ComplianceFailure) Error() string {
	return e.Verdict.Message
}

// Error wraps an unexpected failure of a campaign that had already been
// allocated and was rolled back.
type Error struct {
	CampaignID string
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("campaign %s failed: %v", e.CampaignID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
