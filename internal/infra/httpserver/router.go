package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appquotes "github.com/ngaultier/quotalyze/internal/application/quotes"
	domain "github.com/ngaultier/quotalyze/internal/domain/quotes"
	"github.com/ngaultier/quotalyze/internal/middleware"
)

type Router struct {
	quotesSvc *appquotes.Service
	log       *zap.Logger
}

func NewRouter(quotesSvc *appquotes.Service, corsOrigins []string, log *zap.Logger) http.Handler {
	rt := &Router{quotesSvc: quotesSvc, log: log}
	mux := chi.NewRouter()

	mux.Use(middleware.RequestID)
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.Metrics)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.HeaderRequestID},
		MaxAge:         300,
	}))
	mux.Use(chimw.Recoverer)

	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Route("/quotes", func(r chi.Router) {
		r.Post("/analyze", rt.wrap(rt.handleAnalyze))
		r.Get("/categories", rt.wrap(rt.handleCategories))
		r.Get("/stats", rt.wrap(rt.handleStats))
		r.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
			"analyzer": middleware.CheckerFunc(quotesSvc.CheckAnalyzer),
		}))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

type errorResponse struct {
	Error string `json:"error"`
}

// wrap translates domain errors into the HTTP taxonomy. Messages are written
// for the API caller; the raw cause only shows up in logs.
func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var verr *domain.ValidationError
		var rejected *domain.AnalyzerRejectedError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, domain.ErrAnalyzerUnavailable):
			writeError(w, http.StatusServiceUnavailable, "le service d'analyse est temporairement indisponible, veuillez réessayer plus tard")
		case errors.Is(err, domain.ErrAnalyzerTimeout):
			writeError(w, http.StatusGatewayTimeout, "l'analyse a pris trop de temps, réduisez le nombre de devis ou réessayez")
		case errors.Is(err, domain.ErrMalformedAnalyzerResponse):
			writeError(w, http.StatusBadGateway, "le service d'analyse a renvoyé une réponse inexploitable")
		case errors.As(err, &rejected):
			msg := "le service d'analyse a rejeté la demande"
			if rejected.Detail != "" {
				msg = fmt.Sprintf("%s : %s", msg, rejected.Detail)
			}
			writeError(w, rejected.StatusCode, msg)
		default:
			rt.log.Error("unhandled request error",
				zap.String("request_id", middleware.GetRequestID(req.Context())),
				zap.String("path", req.URL.Path),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "erreur interne du service")
		}
	}
}

type analyzeBatchRequest struct {
	Quotes []domain.QuoteSubmission `json:"quotes"`
}

// POST /quotes/analyze
// Body: {"quotes": [{"vendorName": ..., "content": ..., "category": ...}, ...]}
func (rt *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body analyzeBatchRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return &domain.ValidationError{Message: "corps de requête JSON invalide"}
	}

	res, err := rt.quotesSvc.AnalyzeBatch(req.Context(), body.Quotes)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, res)
}

// GET /quotes/categories
func (rt *Router) handleCategories(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string][]string{"categories": rt.quotesSvc.Categories()})
}

// GET /quotes/stats
func (rt *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, rt.quotesSvc.Stats())
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
