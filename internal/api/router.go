package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/alphapulse/internal/api/handlers"
	"github.com/wonny/alphapulse/pkg/logger"
)

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(
	analysisHandler *handlers.AnalysisHandler,
	streamHandler *handlers.StreamHandler,
	limiter Limiter,
	log *logger.Logger,
) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Report endpoints
	api.HandleFunc("/reports", analysisHandler.ListReports).Methods("GET")
	api.HandleFunc("/reports/{id}", analysisHandler.GetReport).Methods("GET")
	api.HandleFunc("/reports/{id}/filter", analysisHandler.FilterReport).Methods("GET")
	api.HandleFunc("/reports/{id}/drawdowns", analysisHandler.Drawdowns).Methods("GET")
	api.HandleFunc("/reports/{id}/projection", analysisHandler.Projection).Methods("GET")

	// Upload endpoints (rate limited)
	uploads := api.NewRoute().Subrouter()
	uploads.HandleFunc("/analyze", analysisHandler.Analyze).Methods("POST")
	uploads.HandleFunc("/analyze/remote", analysisHandler.AnalyzeRemote).Methods("POST")
	uploads.HandleFunc("/stream", streamHandler.Serve).Methods("GET")
	if limiter != nil {
		uploads.Use(rateLimitMiddleware(limiter, log))
	}

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "alphapulse-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
