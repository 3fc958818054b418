/*
Package apperr maps pipeline errors onto client-facing API errors.

Every error that reaches an HTTP handler is converted with [From], so
responses share one JSON shape whatever layer failed.
*/
package apperr

import (
	"errors"
	"net/http"

	"creative-automation/internal/campaign"
	"creative-automation/internal/locale"
)

// AppError is the canonical API error.
//
// Cause is for server-side logging only and is never serialized.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	HTTPStatus int    `json:"-"`
	Cause      error  `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
	// Meta carries structured context such as the compliance verdict or the
	// rolled-back campaign id.
	Meta map[string]any `json:"meta,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// ComplianceFailed creates a 400 [AppError] carrying the verdict.
func ComplianceFailed(f *campaign.ComplianceFailure) *AppError {
	meta := map[string]any{"compliance": f.Verdict}
	if f.CampaignID != "" {
		meta["campaign_id"] = f.CampaignID
	}
	return &AppError{
		Code:       "COMPLIANCE_FAILED",
		Message:    "Compliance check failed",
		HTTPStatus: http.StatusBadRequest,
		Cause:      f,
		Meta:       meta,
	}
}

// Busy creates a 503 [AppError] when no campaign slot is free.
func Busy() *AppError {
	return &AppError{
		Code:       "BUSY",
		Message:    "Too many campaigns in progress, try again later",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// CampaignFailed creates a 500 [AppError] for a rolled-back campaign.
func CampaignFailed(e *campaign.Error) *AppError {
	return &AppError{
		Code:       "CAMPAIGN_FAILED",
		Message:    "Campaign generation failed",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      e,
		Meta: map[string]any{
			"campaign_id": e.CampaignID,
			"message":     e.Err.Error(),
		},
	}
}

// # Helpers

// From converts any error to an [*AppError]. Unknown errors become
// INTERNAL_ERROR.
func From(err error) *AppError {
	if err == nil {
		return nil
	}

	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}

	var cf *campaign.ComplianceFailure
	if errors.As(err, &cf) {
		return ComplianceFailed(cf)
	}

	var ve *campaign.ValidationError
	if errors.As(err, &ve) {
		return &AppError{
			Code:       "VALIDATION_ERROR",
			Message:    ve.Error(),
			HTTPStatus: http.StatusBadRequest,
			Cause:      err,
			Details:    []FieldError{{Field: ve.Field, Message: ve.Message}},
		}
	}

	if errors.Is(err, campaign.ErrCampaignNotFound) {
		return NotFound("Campaign")
	}
	if errors.Is(err, locale.ErrUnknownLocation) {
		return &AppError{
			Code:       "VALIDATION_ERROR",
			Message:    err.Error(),
			HTTPStatus: http.StatusBadRequest,
			Cause:      err,
		}
	}

	var ce *campaign.Error
	if errors.As(err, &ce) {
		return CampaignFailed(ce)
	}

	return Internal(err)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
