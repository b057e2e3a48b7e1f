package main

import (
	"encoding/json"
	"net/http"

	"reefops/internal/metrics"
	"reefops/internal/tracing"
)

// handleMetrics serves the in-process metrics registry as JSON.
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.WithField("request_id", tracing.GetRequestID(r.Context())).
			Debug("Serving metrics endpoint")

		snapshot := metrics.Default().Snapshot()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(snapshot); err != nil {
			s.logger.WithError(err).Error("Failed to encode metrics")
		}
	}
}
