package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"readout/internal/config"
	"readout/internal/logging"
	"readout/internal/services"
)

type apiServer struct {
	bind   string
	cfg    *config.Config
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "api")),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/url/", srv.handleSubmitURL)
	mux.HandleFunc("/v1/text/", srv.handleText)
	mux.HandleFunc("/v1/articles/batch", srv.handleBatch)
	mux.HandleFunc("/v1/queue/status", srv.handleQueueStatus)
	mux.HandleFunc("/v1/queue/remove", srv.handleQueueRemove)
	mux.HandleFunc("/v1/sources/add", srv.handleSourcesAdd)
	mux.HandleFunc("/v1/sources/get", srv.handleSourcesGet)
	mux.HandleFunc("/v1/sources/fetch", srv.handleSourcesFetch)
	mux.HandleFunc("/v1/feeds/get_todays_articles", srv.handleTodaysArticles)
	mux.HandleFunc("/v1/available-media", srv.handleAvailableMedia)
	mux.HandleFunc("/v1/article/", srv.handleMediaByID)
	mux.HandleFunc("/v1/podcast/", srv.handleMediaByID)
	mux.HandleFunc("/v1/audio", srv.handleAudioDelete)

	srv.server = &http.Server{
		Handler:           srv.withCorrelation(mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen %s: %w", s.bind, err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withCorrelation stamps every request with a correlation id and logs its
// outcome.
func (s *apiServer) withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", correlationID)

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.logger.Debug("request handled",
			logging.String(logging.FieldCorrelationID, correlationID),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", recorder.status),
			logging.Duration("elapsed", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP status codes.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, services.Message(err))
	case errors.Is(err, services.ErrDuplicate):
		s.writeError(w, http.StatusConflict, services.Message(err))
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, services.Message(err))
	default:
		s.writeError(w, http.StatusInternalServerError, services.Message(err))
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
