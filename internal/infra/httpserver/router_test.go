package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngaultier/quotalyze/internal/application"
	appquotes "github.com/ngaultier/quotalyze/internal/application/quotes"
	domain "github.com/ngaultier/quotalyze/internal/domain/quotes"
)

type analyzerStub struct {
	res     *domain.AnalysisBatchResult
	err     error
	healthy bool
}

func (s *analyzerStub) Analyze(ctx context.Context, subs []domain.QuoteSubmission) (*domain.AnalysisBatchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.res, nil
}

func (s *analyzerStub) CheckHealth(ctx context.Context) bool { return s.healthy }

func price(v float64) *float64 { return &v }

func newTestRouter(stub *analyzerStub) http.Handler {
	svc := appquotes.NewService(stub, application.SystemClock{}, appquotes.NewStatsCollector(time.Now()), zap.NewNop())
	return NewRouter(svc, []string{"*"}, zap.NewNop())
}

func analyzeBody() string {
	content := strings.Repeat("Description détaillée de la prestation proposée. ", 3)
	return `{"quotes": [
		{"vendorName": "Acme", "content": "` + content + `", "category": "Autre"},
		{"vendorName": "Globex", "content": "` + content + `", "category": "Autre"}
	]}`
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAnalyzeEndpoint_OK(t *testing.T) {
	stub := &analyzerStub{
		res: &domain.AnalysisBatchResult{
			Analyses: []domain.QuoteAnalysis{
				{VendorName: "Acme", Price: price(900), Strengths: []string{"a", "b"}, Weaknesses: []string{}, Risks: []string{}, Score: 40, Reasoning: "moyen"},
				{VendorName: "Globex", Price: nil, Strengths: []string{"a", "b"}, Weaknesses: []string{}, Risks: []string{}, Score: 90, Reasoning: "fort"},
			},
			OverallRecommendation: "Globex reste devant malgré le prix manquant.",
		},
	}

	rec := doRequest(t, newTestRouter(stub), http.MethodPost, "/quotes/analyze", analyzeBody())

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var got struct {
		Analyses []struct {
			VendorName string   `json:"vendorName"`
			Price      *float64 `json:"price"`
			Score      float64  `json:"score"`
			Reasoning  string   `json:"reasoning"`
		} `json:"analyses"`
		OverallRecommendation string    `json:"overallRecommendation"`
		AnalyzedAt            time.Time `json:"analyzedAt"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	require.Len(t, got.Analyses, 2)
	// Globex: 90 - 10 (missing price) = 80, still first.
	assert.Equal(t, "Globex", got.Analyses[0].VendorName)
	assert.Nil(t, got.Analyses[0].Price)
	assert.Equal(t, 80.0, got.Analyses[0].Score)
	assert.Contains(t, got.Analyses[0].Reasoning, "Prix non spécifié (-10 pts)")
	assert.Equal(t, "Acme", got.Analyses[1].VendorName)
	assert.Equal(t, 40.0, got.Analyses[1].Score)
	assert.False(t, got.AnalyzedAt.IsZero())
}

func TestAnalyzeEndpoint_BatchTooSmall(t *testing.T) {
	body := `{"quotes": [{"vendorName": "Solo", "content": "` + strings.Repeat("texte ", 20) + `", "category": "Autre"}]}`

	rec := doRequest(t, newTestRouter(&analyzerStub{}), http.MethodPost, "/quotes/analyze", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "au moins 2 devis")
}

func TestAnalyzeEndpoint_FieldError(t *testing.T) {
	body := `{"quotes": [
		{"vendorName": "Acme", "content": "` + strings.Repeat("texte ", 20) + `", "category": "Autre"},
		{"vendorName": "Globex", "content": "court", "category": "Autre"}
	]}`

	rec := doRequest(t, newTestRouter(&analyzerStub{}), http.MethodPost, "/quotes/analyze", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	msg := errorMessage(t, rec)
	assert.Contains(t, msg, "quotes[1].content")
	assert.Contains(t, msg, "au moins 50 caractères")
}

func TestAnalyzeEndpoint_InvalidJSON(t *testing.T) {
	rec := doRequest(t, newTestRouter(&analyzerStub{}), http.MethodPost, "/quotes/analyze", "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "corps de requête JSON invalide", errorMessage(t, rec))
}

func TestAnalyzeEndpoint_UpstreamUnavailable(t *testing.T) {
	stub := &analyzerStub{err: domain.ErrAnalyzerUnavailable}

	rec := doRequest(t, newTestRouter(stub), http.MethodPost, "/quotes/analyze", analyzeBody())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "temporairement indisponible")
}

func TestAnalyzeEndpoint_UpstreamTimeout(t *testing.T) {
	stub := &analyzerStub{err: domain.ErrAnalyzerTimeout}

	rec := doRequest(t, newTestRouter(stub), http.MethodPost, "/quotes/analyze", analyzeBody())

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "trop de temps")
}

func TestAnalyzeEndpoint_UpstreamRejected(t *testing.T) {
	stub := &analyzerStub{err: &domain.AnalyzerRejectedError{StatusCode: http.StatusUnprocessableEntity, Detail: "quotes list is too long"}}

	rec := doRequest(t, newTestRouter(stub), http.MethodPost, "/quotes/analyze", analyzeBody())

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	msg := errorMessage(t, rec)
	assert.Contains(t, msg, "rejeté la demande")
	assert.Contains(t, msg, "quotes list is too long")
}

func TestAnalyzeEndpoint_MalformedUpstream(t *testing.T) {
	stub := &analyzerStub{err: domain.ErrMalformedAnalyzerResponse}

	rec := doRequest(t, newTestRouter(stub), http.MethodPost, "/quotes/analyze", analyzeBody())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "réponse inexploitable")
}

func TestAnalyzeEndpoint_UnknownError(t *testing.T) {
	stub := &analyzerStub{err: assert.AnError}

	rec := doRequest(t, newTestRouter(stub), http.MethodPost, "/quotes/analyze", analyzeBody())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "erreur interne du service", errorMessage(t, rec))
}

func TestCategoriesEndpoint(t *testing.T) {
	rec := doRequest(t, newTestRouter(&analyzerStub{}), http.MethodGet, "/quotes/categories", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.Categories, got.Categories)
}

func TestStatsEndpoint(t *testing.T) {
	stub := &analyzerStub{
		res: &domain.AnalysisBatchResult{
			Analyses: []domain.QuoteAnalysis{
				{VendorName: "A", Price: price(1), Strengths: []string{"a", "b"}, Score: 30},
				{VendorName: "B", Price: price(2), Strengths: []string{"a", "b"}, Score: 50},
			},
		},
	}
	router := newTestRouter(stub)

	rec := doRequest(t, router, http.MethodGet, "/quotes/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var before appquotes.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.Zero(t, before.BatchesAnalyzed)
	assert.Nil(t, before.AverageScore)

	doRequest(t, router, http.MethodPost, "/quotes/analyze", analyzeBody())

	rec = doRequest(t, router, http.MethodGet, "/quotes/stats", "")
	var after appquotes.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, int64(1), after.BatchesAnalyzed)
	assert.Equal(t, int64(2), after.QuotesAnalyzed)
	require.NotNil(t, after.AverageScore)
	assert.Equal(t, 40.0, *after.AverageScore)
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, newTestRouter(&analyzerStub{healthy: true}), http.MethodGet, "/quotes/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, "ok", got.Checks["api"].Status)
	assert.Equal(t, "ok", got.Checks["analyzer"].Status)
}

func TestHealthEndpoint_AnalyzerDown(t *testing.T) {
	rec := doRequest(t, newTestRouter(&analyzerStub{healthy: false}), http.MethodGet, "/quotes/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, "down", got.Checks["analyzer"].Status)
}

func TestLivenessEndpoint(t *testing.T) {
	rec := doRequest(t, newTestRouter(&analyzerStub{}), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(&analyzerStub{})
	doRequest(t, router, http.MethodGet, "/quotes/categories", "")

	rec := doRequest(t, router, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "quotalyze_http_requests_total")
}

func TestUnknownRouteIs404(t *testing.T) {
	rec := doRequest(t, newTestRouter(&analyzerStub{}), http.MethodGet, "/quotes/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
