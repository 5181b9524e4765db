package sources

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes the failure taxonomy across scraping mechanics.
type ErrorCategory string

const (
	// ErrorTimeout indicates the source took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the source returned invalid/malformed data.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorOutage indicates the source is unavailable.
	ErrorOutage ErrorCategory = "outage"

	// ErrorRateLimited indicates too many requests.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected internal error.
	ErrorInternal ErrorCategory = "internal"
)

// AdapterError wraps source failures with normalized categorization. An
// adapter failure is recorded in the run's SourceResult and is never fatal
// to a run.
type AdapterError struct {
	Category   ErrorCategory
	SourceName string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *AdapterError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("source %s [%s]: %s: %v", e.SourceName, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("source %s [%s]: %s", e.SourceName, e.Category, e.Message)
}

func (e *AdapterError) Unwrap() error {
	return e.Underlying
}

// NewAdapterError creates a normalized adapter error. Timeouts, outages and
// rate limiting are transient and marked retryable.
func NewAdapterError(category ErrorCategory, sourceName, message string, underlying error) *AdapterError {
	retryable := category == ErrorTimeout ||
		category == ErrorOutage ||
		category == ErrorRateLimited

	return &AdapterError{
		Category:   category,
		SourceName: sourceName,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return false
}

// Category extracts the error category from an error.
func Category(err error) ErrorCategory {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrorInternal
}

// Sentinel errors for common cases.
var (
	ErrSourceNotRegistered = errors.New("source not registered")
	ErrCircuitOpen         = errors.New("source circuit open")
)
