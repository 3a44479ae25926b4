// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/klytics/sheetgraph/internal/graph"
	"github.com/klytics/sheetgraph/internal/logging"
	"github.com/klytics/sheetgraph/internal/pipeline"
	"github.com/klytics/sheetgraph/internal/workbook"
)

// UploadExtensions are the filename extensions the upload endpoint accepts.
var UploadExtensions = []string{".xlsx", ".xls"}

const invalidType = "Invalid file type. Please upload Excel."

// ErrTimeout is reported when extraction exceeds the configured timeout.
var ErrTimeout = errors.New("extraction timed out")

// Options configures a Server.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	Timeout        time.Duration
	Logger         *slog.Logger
	// MCP, when set, is served over streamable HTTP at /mcp.
	MCP *mcp.Server
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	pipeline *pipeline.Pipeline
	opts     Options
	logger   *slog.Logger
	router   *chi.Mux
}

// New builds the router. Zero options get defaults: 32 MiB uploads and a
// 60 second extraction timeout.
func New(p *pipeline.Pipeline, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Addr == "" {
		opts.Addr = ":8000"
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{pipeline: p, opts: opts, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/upload/excel", s.handleUpload)
	if opts.MCP != nil {
		srv := opts.MCP
		r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
	}

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not stop server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.writeDetail(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", s.opts.MaxUploadBytes))
			return
		}
		s.writeDetail(w, http.StatusBadRequest, "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	if !hasUploadExtension(header.Filename) {
		s.writeDetail(w, http.StatusBadRequest, invalidType)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, fmt.Sprintf("could not read upload: %v", err))
		return
	}

	resp, err := s.extract(r.Context(), content, header.Filename)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, resp)
	case workbook.IsFormatError(err):
		s.writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTimeout):
		s.logger.Warn("extraction timed out", "file", header.Filename, "timeout", s.opts.Timeout)
		s.writeDetail(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, context.Canceled):
		s.logger.Info("client went away", "file", header.Filename)
	default:
		s.logger.Error("extraction failed", "file", header.Filename, "error", err)
		s.writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

// extract runs the pipeline as one unit of work bounded by the timeout. The
// pipeline itself is not cancellable; on timeout its result is discarded.
func (s *Server) extract(ctx context.Context, content []byte, filename string) (*graph.ExtractionResponse, error) {
	type result struct {
		resp *graph.ExtractionResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- result{err: fmt.Errorf("internal error: %v", rec)}
			}
		}()
		resp, err := s.pipeline.Extract(content, filename)
		done <- result{resp, err}
	}()

	timer := time.NewTimer(s.opts.Timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.resp, res.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func hasUploadExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range UploadExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("could not write response", "status", status, "error", err)
	}
}
