package quotes

import "context"

// Analyzer is the port to the external AI analysis service.
type Analyzer interface {
	// Analyze submits a batch and returns the raw, unadjusted result, with
	// exactly one analysis per submission. Exactly one outbound attempt;
	// failures map onto the taxonomy in errors.go. List fields pass through
	// verbatim, including order, and the price absence-vs-zero distinction
	// is preserved.
	Analyze(ctx context.Context, subs []QuoteSubmission) (*AnalysisBatchResult, error)

	// CheckHealth probes the analyzer with its own short deadline. It never
	// fails: any error, timeout or unexpected body reduces to false.
	CheckHealth(ctx context.Context) bool
}
