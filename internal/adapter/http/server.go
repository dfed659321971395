package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/couchcryptid/miz-weather/internal/editor"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxPreviewBody bounds the size of a preview request.
const maxPreviewBody = 4 << 10

// Previewer derives mission weather from a report without editing anything.
type Previewer interface {
	Preview(ctx context.Context, req domain.EditRequest) (domain.Weather, error)
}

// Server exposes health, readiness, metrics and weather preview endpoints.
type Server struct {
	httpServer *http.Server
	previewer  Previewer
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// POST /v1/preview routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, previewer Previewer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		previewer: previewer,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /v1/preview", s.handlePreview)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type previewRequest struct {
	Report  string `json:"report"`
	MinWind *int   `json:"min_wind,omitempty"`
	MaxWind *int   `json:"max_wind,omitempty"`
}

type previewResponse struct {
	Weather domain.Weather `json:"weather"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var body previewRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPreviewBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	wx, err := s.previewer.Preview(r.Context(), domain.EditRequest{
		Report:  body.Report,
		MinWind: body.MinWind,
		MaxWind: body.MaxWind,
	})
	if err != nil {
		status := http.StatusUnprocessableEntity
		var fetchErr *editor.FetchError
		if errors.As(err, &fetchErr) {
			status = http.StatusBadGateway
		}
		s.logger.Debug("preview rejected", "report", body.Report, "error", err)
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Weather: wx})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
