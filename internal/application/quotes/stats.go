package quotes

import (
	"sync"
	"time"
)

// Stats is the snapshot served by GET /quotes/stats. Counters cover the
// current process lifetime only; there is no storage behind them yet.
type Stats struct {
	BatchesAnalyzed int64     `json:"batchesAnalyzed"`
	BatchesFailed   int64     `json:"batchesFailed"`
	QuotesAnalyzed  int64     `json:"quotesAnalyzed"`
	AverageScore    *float64  `json:"averageScore"`
	UptimeSeconds   int64     `json:"uptimeSeconds"`
	Since           time.Time `json:"since"`
}

// StatsCollector accumulates analysis counters. Safe for concurrent use.
// The running average needs the sum and the count to move together, so a
// mutex guards the whole struct instead of per-field atomics.
type StatsCollector struct {
	mu        sync.Mutex
	startedAt time.Time
	batches   int64
	failed    int64
	quotes    int64
	scoreSum  float64
}

func NewStatsCollector(startedAt time.Time) *StatsCollector {
	return &StatsCollector{startedAt: startedAt}
}

// RecordBatch counts one successful batch and folds in its adjusted scores.
func (c *StatsCollector) RecordBatch(scores []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches++
	c.quotes += int64(len(scores))
	for _, s := range scores {
		c.scoreSum += s
	}
}

// RecordFailure counts one batch that never produced a result.
func (c *StatsCollector) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
}

// Snapshot returns the counters as of now. AverageScore stays nil until at
// least one quote has been analyzed.
func (c *StatsCollector) Snapshot(now time.Time) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		BatchesAnalyzed: c.batches,
		BatchesFailed:   c.failed,
		QuotesAnalyzed:  c.quotes,
		UptimeSeconds:   int64(now.Sub(c.startedAt).Seconds()),
		Since:           c.startedAt,
	}
	if c.quotes > 0 {
		avg := c.scoreSum / float64(c.quotes)
		s.AverageScore = &avg
	}
	return s
}
