package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker reports whether one dependency currently answers.
type HealthChecker interface {
	Check(ctx context.Context) bool
}

// CheckerFunc adapts a plain probe function to HealthChecker.
type CheckerFunc func(ctx context.Context) bool

func (f CheckerFunc) Check(ctx context.Context) bool { return f(ctx) }

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// HealthStatus is the composite health document.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus is one dependency's entry in the document.
type CheckStatus struct {
	Status string `json:"status"`
}

// HealthHandler builds the composite health endpoint. The service itself
// reports under "api"; each checker adds its own entry. A failing dependency
// degrades the overall status but the response stays 200: this process is
// alive and answering, the document is the diagnosis.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := HealthStatus{
			Status:    StatusOK,
			Timestamp: time.Now().UTC(),
			Checks:    map[string]CheckStatus{"api": {Status: StatusOK}},
		}

		for name, checker := range checkers {
			if checker.Check(ctx) {
				health.Checks[name] = CheckStatus{Status: StatusOK}
			} else {
				health.Status = StatusDegraded
				health.Checks[name] = CheckStatus{Status: StatusDown}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(health)
	}
}

// LivenessHandler is the bare probe for orchestrators.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
