package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSourceUnavailable indicates that an external bibliographic API
	// failed or timed out. Non-fatal: it reduces recall but never aborts
	// the overall search.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrEmptyResultSet indicates that all sources returned nothing. This
	// is the one fatal search condition surfaced to the caller.
	ErrEmptyResultSet = errors.New("empty result set")

	// ErrEmbeddingFailure indicates that the embedding provider failed to
	// encode a text. Per-article failures are converted into exclusions.
	ErrEmbeddingFailure = errors.New("embedding failure")

	// ErrTranslationFailure indicates that question translation failed.
	// The pipeline falls back to the original-language text.
	ErrTranslationFailure = errors.New("translation failure")

	// ErrPDFExtraction indicates that full-text enrichment failed for one
	// article. Non-fatal: the record keeps using abstract-level text.
	ErrPDFExtraction = errors.New("pdf extraction failed")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// SourceUnavailableError records which source failed and why. The search
// orchestrator logs these and continues with the surviving sources.
type SourceUnavailableError struct {
	Source SourceType
	Cause  error
}

// Error implements the error interface.
func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *SourceUnavailableError) Unwrap() error {
	return ErrSourceUnavailable
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewSourceUnavailableError creates a new SourceUnavailableError.
func NewSourceUnavailableError(source SourceType, cause error) *SourceUnavailableError {
	return &SourceUnavailableError{
		Source: source,
		Cause:  cause,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}
