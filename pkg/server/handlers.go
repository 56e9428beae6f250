package server

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hyp3rd/countd/pkg/store"
)

type countResponse struct {
	Count int64 `json:"count"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type versionResponse struct {
	Version string `json:"version"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleCounter serves GET / (read) and POST / (increment).
func (s *Server) HandleCounter(w http.ResponseWriter, r *http.Request) {
	// The root pattern is a catch-all in net/http.
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})

		return
	}

	switch r.Method {
	case http.MethodGet:
		count, err := s.counter.Current(r.Context())
		if err != nil {
			s.writeStoreError(w, r, err)

			return
		}

		writeJSON(w, http.StatusOK, countResponse{Count: count})
	case http.MethodPost:
		count, err := s.counter.Increment(r.Context())
		if err != nil {
			s.writeStoreError(w, r, err)

			return
		}

		writeJSON(w, http.StatusOK, countResponse{Count: count})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

// HandleHealth reports the prober's verdict. It reads a published flag and
// never blocks on storage or the counter lock.
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.health != nil && !s.health.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "unhealthy"})

		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// HandleVersion reports the build label. Purely in-memory, no I/O.
func (s *Server) HandleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{Version: s.cfg.Service.Version})
}

// writeStoreError maps the store error taxonomy onto status codes. Lock
// timeouts are retryable (503, nothing changed); corrupt state is a serving
// outage (503); everything else is an internal storage failure (500). Raw
// error text never reaches the caller.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case store.ErrLockTimeout.Is(err):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "busy, retry"})
	case store.ErrCorruptState.Is(err):
		s.logger.Error(r.Context(), err, "request rejected: corrupt state")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "counter state unavailable"})
	default:
		s.logger.Error(r.Context(), err, "storage failure",
			attribute.String("method", r.Method),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage failure"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	//nolint:errcheck // headers are already written, nothing left to report
	_ = json.NewEncoder(w).Encode(body)
}
