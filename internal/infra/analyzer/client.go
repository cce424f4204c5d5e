package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	domain "github.com/ngaultier/quotalyze/internal/domain/quotes"
)

// The upstream reports health as {"status":"ok"} on its root path.
const healthSentinel = "ok"

var analyzerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "quotalyze_analyzer_requests_total",
	Help: "Outbound analyzer calls by outcome.",
}, []string{"outcome"})

// Client talks to the external AI analysis service. The upstream speaks
// snake_case JSON; this adapter owns the translation in both directions and
// maps transport failures onto the domain error taxonomy.
type Client struct {
	baseURL        string
	http           *http.Client
	analyzeTimeout time.Duration
	healthTimeout  time.Duration
	log            *zap.Logger
}

// NewClient builds a client for the analyzer at baseURL. Timeouts are applied
// per call through the request context, so the underlying http.Client carries
// none of its own.
func NewClient(baseURL string, analyzeTimeout, healthTimeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{},
		analyzeTimeout: analyzeTimeout,
		healthTimeout:  healthTimeout,
		log:            log,
	}
}

type analyzeRequest struct {
	Quotes []wireQuote `json:"quotes"`
}

type wireQuote struct {
	VendorName string `json:"vendor_name"`
	Content    string `json:"content"`
	Category   string `json:"category"`
}

type analyzeResponse struct {
	Analyses              []wireAnalysis `json:"analyses"`
	OverallRecommendation string         `json:"overall_recommendation"`
}

// wireAnalysis keeps score as a pointer so a missing field is distinguishable
// from a legitimate zero.
type wireAnalysis struct {
	VendorName string   `json:"vendor_name"`
	Price      *float64 `json:"price"`
	Currency   string   `json:"currency"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Risks      []string `json:"risks"`
	Score      *float64 `json:"score"`
	Reasoning  string   `json:"reasoning"`
}

// Analyze submits the batch with a single outbound attempt, no retries.
func (c *Client) Analyze(ctx context.Context, subs []domain.QuoteSubmission) (*domain.AnalysisBatchResult, error) {
	start := time.Now()
	res, err := c.analyze(ctx, subs)
	analyzerRequests.WithLabelValues(outcomeLabel(err)).Inc()
	if err == nil {
		c.log.Debug("analyzer call completed",
			zap.Int("quotes", len(subs)),
			zap.Duration("took", time.Since(start)),
		)
	}
	return res, err
}

func (c *Client) analyze(ctx context.Context, subs []domain.QuoteSubmission) (*domain.AnalysisBatchResult, error) {
	payload := analyzeRequest{Quotes: make([]wireQuote, len(subs))}
	for i, s := range subs {
		payload.Quotes[i] = wireQuote{
			VendorName: s.VendorName,
			Content:    s.Content,
			Category:   s.Category,
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyzer request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.analyzeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, rejectionError(resp)
	}

	var decoded analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedAnalyzerResponse, err)
	}
	return toDomain(decoded, len(subs))
}

// CheckHealth probes GET {base}/ with its own short deadline. Any failure,
// including timeout or an unexpected body, reduces to false.
func (c *Client) CheckHealth(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("analyzer health probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return false
	}
	return body.Status == healthSentinel
}

// transportError classifies a failed round trip into the domain taxonomy.
func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response after %s", domain.ErrAnalyzerTimeout, c.analyzeTimeout)
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return fmt.Errorf("%w: %v", domain.ErrAnalyzerTimeout, err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", domain.ErrAnalyzerUnavailable, err)
	}
	return fmt.Errorf("analyzer request failed: %w", err)
}

// rejectionError preserves the upstream status code and surfaces its error
// detail. The body is read with a small cap; both FastAPI-style {"detail"}
// and plain {"error"} payloads are understood, anything else is kept raw.
func rejectionError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(raw))

	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		switch {
		case body.Detail != "":
			detail = body.Detail
		case body.Error != "":
			detail = body.Error
		}
	}
	return &domain.AnalyzerRejectedError{StatusCode: resp.StatusCode, Detail: detail}
}

// toDomain validates the decoded payload and translates it into domain types.
// Required fields that are missing or empty fail the whole response rather
// than letting undefined values float through.
func toDomain(decoded analyzeResponse, want int) (*domain.AnalysisBatchResult, error) {
	if decoded.Analyses == nil {
		return nil, fmt.Errorf("%w: missing analyses field", domain.ErrMalformedAnalyzerResponse)
	}
	if len(decoded.Analyses) != want {
		return nil, fmt.Errorf("%w: got %d analyses for %d quotes", domain.ErrMalformedAnalyzerResponse, len(decoded.Analyses), want)
	}

	out := make([]domain.QuoteAnalysis, len(decoded.Analyses))
	for i, a := range decoded.Analyses {
		if a.VendorName == "" {
			return nil, fmt.Errorf("%w: analysis %d has no vendor_name", domain.ErrMalformedAnalyzerResponse, i)
		}
		if a.Score == nil {
			return nil, fmt.Errorf("%w: analysis %d has no score", domain.ErrMalformedAnalyzerResponse, i)
		}
		out[i] = domain.QuoteAnalysis{
			VendorName: a.VendorName,
			Price:      a.Price,
			Currency:   a.Currency,
			Strengths:  orEmpty(a.Strengths),
			Weaknesses: orEmpty(a.Weaknesses),
			Risks:      orEmpty(a.Risks),
			Score:      *a.Score,
			Reasoning:  a.Reasoning,
		}
	}
	return &domain.AnalysisBatchResult{
		Analyses:              out,
		OverallRecommendation: decoded.OverallRecommendation,
	}, nil
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrAnalyzerTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrAnalyzerUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrMalformedAnalyzerResponse):
		return "malformed"
	default:
		var rejected *domain.AnalyzerRejectedError
		if errors.As(err, &rejected) {
			return "rejected"
		}
		return "error"
	}
}
