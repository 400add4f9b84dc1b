package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(handler.logRequests)

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Trigger routes
	api.HandleFunc("/alerts/process", handler.ProcessAlerts).Methods("POST")
	api.HandleFunc("/alerts/{alertID}/test", handler.SendTestNotification).Methods("POST")

	// Alert routes
	api.HandleFunc("/alerts", handler.ListAlerts).Methods("GET")
	api.HandleFunc("/alerts", handler.CreateAlert).Methods("POST")
	api.HandleFunc("/alerts/{alertID}", handler.GetAlert).Methods("GET")
	api.HandleFunc("/alerts/{alertID}", handler.UpdateAlert).Methods("PUT")
	api.HandleFunc("/alerts/{alertID}", handler.DeleteAlert).Methods("DELETE")
	api.HandleFunc("/alerts/{alertID}/history", handler.GetAlertHistory).Methods("GET")

	// Market data routes
	api.HandleFunc("/tokens/{tokenID}/market", handler.GetTokenMarketData).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
