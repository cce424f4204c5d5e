package quotes

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ngaultier/quotalyze/internal/application"
	domain "github.com/ngaultier/quotalyze/internal/domain/quotes"
)

// Service implements the quote-analysis use cases: validate a batch, send it
// to the analyzer, apply the business score adjustments and rank the result.
type Service struct {
	analyzer domain.Analyzer
	clock    application.Clock
	stats    *StatsCollector
	log      *zap.Logger
}

func NewService(analyzer domain.Analyzer, clock application.Clock, stats *StatsCollector, log *zap.Logger) *Service {
	return &Service{analyzer: analyzer, clock: clock, stats: stats, log: log}
}

// AnalyzeBatch runs the full pipeline for one batch of submissions. The batch
// succeeds or fails as a whole: no partial results.
func (s *Service) AnalyzeBatch(ctx context.Context, subs []domain.QuoteSubmission) (*domain.AnalysisBatchResult, error) {
	if len(subs) < domain.MinBatchSize || len(subs) > domain.MaxBatchSize {
		return nil, domain.InvalidBatchSize(len(subs))
	}
	for i := range subs {
		subs[i] = subs[i].Sanitize()
		if err := subs[i].Validate(); err != nil {
			return nil, indexed(err, i)
		}
	}

	// The analysis keeps running if the caller disconnects: a long upstream
	// call is never cancelled by the inbound request going away.
	res, err := s.analyzer.Analyze(context.WithoutCancel(ctx), subs)
	if err != nil {
		s.stats.RecordFailure()
		s.log.Warn("batch analysis failed", zap.Int("quotes", len(subs)), zap.Error(err))
		return nil, err
	}

	for i := range res.Analyses {
		res.Analyses[i] = domain.Adjust(res.Analyses[i])
	}
	domain.Rank(res.Analyses)
	res.AnalyzedAt = s.clock.Now()

	scores := make([]float64, len(res.Analyses))
	for i, a := range res.Analyses {
		scores[i] = a.Score
	}
	s.stats.RecordBatch(scores)

	top := res.Analyses[0]
	s.log.Info("batch analyzed",
		zap.Int("quotes", len(subs)),
		zap.String("top_vendor", top.VendorName),
		zap.Float64("top_score", top.Score),
	)
	return res, nil
}

// Categories returns the fixed list of quote categories.
func (s *Service) Categories() []string {
	return domain.Categories
}

// Stats returns the process-lifetime counters.
func (s *Service) Stats() Stats {
	return s.stats.Snapshot(s.clock.Now())
}

// CheckAnalyzer reports whether the upstream analyzer answers its health probe.
func (s *Service) CheckAnalyzer(ctx context.Context) bool {
	return s.analyzer.CheckHealth(ctx)
}

// indexed prefixes a field-level validation error with the position of the
// offending submission, e.g. "quotes[2].content".
func indexed(err error, i int) error {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	return &domain.ValidationError{
		Field:   fmt.Sprintf("quotes[%d].%s", i, verr.Field),
		Message: verr.Message,
	}
}
