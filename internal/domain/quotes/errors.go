package quotes

import (
	"errors"
	"fmt"
)

// Analyzer failure sentinels. The HTTP layer translates them into response
// codes and user-facing messages; none of them is retried automatically.
var (
	// ErrAnalyzerUnavailable means the analyzer host could not be reached at
	// all (connection refused, host not found).
	ErrAnalyzerUnavailable = errors.New("analyzer service unavailable")

	// ErrAnalyzerTimeout means the analyze call did not complete within the
	// configured deadline.
	ErrAnalyzerTimeout = errors.New("analyzer request timed out")

	// ErrMalformedAnalyzerResponse means the analyzer answered 2xx but the
	// payload was missing required fields or carried wrong types.
	ErrMalformedAnalyzerResponse = errors.New("malformed analyzer response")
)

// AnalyzerRejectedError is returned when the analyzer answered with a
// non-success status. StatusCode preserves the upstream code so the HTTP
// layer can pass it through; Detail carries the upstream's own error text
// when its body had one.
type AnalyzerRejectedError struct {
	StatusCode int
	Detail     string
}

func (e *AnalyzerRejectedError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("analyzer rejected request with status %d", e.StatusCode)
	}
	return fmt.Sprintf("analyzer rejected request with status %d: %s", e.StatusCode, e.Detail)
}

// ValidationError reports a rejected batch shape or submission field.
// Field uses the public JSON naming (e.g. "quotes[1].content"); Message is
// the user-facing explanation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidBatchSize builds the validation failure for an out-of-bounds batch.
func InvalidBatchSize(n int) *ValidationError {
	if n < MinBatchSize {
		return &ValidationError{
			Field:   "quotes",
			Message: fmt.Sprintf("au moins %d devis sont requis pour une analyse comparative (reçu : %d)", MinBatchSize, n),
		}
	}
	return &ValidationError{
		Field:   "quotes",
		Message: fmt.Sprintf("un lot ne peut pas dépasser %d devis (reçu : %d)", MaxBatchSize, n),
	}
}
