package models

import (
	"errors"
	"fmt"
)

// Error codes carried by ScrapeError.
const (
	ErrCodeNavigationTimeout = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation        = "NAVIGATION_FAILED"
	ErrCodeVariantStep       = "VARIANT_STEP_FAILED"
	ErrCodeSessionInit       = "SESSION_INIT_FAILED"
	ErrCodeRowFailed         = "ROW_FAILED"
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeOutput            = "OUTPUT_FAILED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error exposed by the status API.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	URL     string // offending page, empty when not tied to one
	Err     error  // wrapped original error
}

func (e *ScrapeError) Error() string {
	msg := e.Code + ": " + e.Message
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// NewNavigationTimeout reports that every load attempt for url timed out.
func NewNavigationTimeout(url string, attempts int) *ScrapeError {
	return &ScrapeError{
		Code:    ErrCodeNavigationTimeout,
		Message: fmt.Sprintf("failed to load page after %d attempts", attempts),
		URL:     url,
	}
}

// NewNavigationError wraps a navigation failure that is not worth retrying.
func NewNavigationError(url string, err error) *ScrapeError {
	return &ScrapeError{
		Code:    ErrCodeNavigation,
		Message: "navigation failed",
		URL:     url,
		Err:     err,
	}
}

// NewRowFailure attributes cause to the whole row identified by url.
func NewRowFailure(url string, cause error) *ScrapeError {
	return &ScrapeError{
		Code:    ErrCodeRowFailed,
		Message: "row processing failed",
		URL:     url,
		Err:     cause,
	}
}

// NewSessionInitFailure reports that the shared session could not be created.
func NewSessionInitFailure(message string, err error) *ScrapeError {
	return &ScrapeError{Code: ErrCodeSessionInit, Message: message, Err: err}
}

// NewVariantStepFailure reports that swatch control index could not be
// activated or its dependent field could not be read.
func NewVariantStepFailure(index int, err error) *ScrapeError {
	return &ScrapeError{
		Code:    ErrCodeVariantStep,
		Message: fmt.Sprintf("variant %d skipped", index),
		Err:     err,
	}
}

// HasCode reports whether any ScrapeError in err's chain carries code.
func HasCode(err error, code string) bool {
	for err != nil {
		var se *ScrapeError
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Err
	}
	return false
}

// ToDetail converts an internal error to an API-facing ErrorDetail. The
// message keeps the page and the wrapped cause.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	msg := e.Message
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return &ErrorDetail{Code: e.Code, Message: msg}
}
