// Package server exposes exports over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/alnah/go-mdexport"
)

// Default limits.
const (
	DefaultMaxBodyBytes = 64 << 20 // diagram captures travel as data URIs
	DefaultShutdownWait = 10 * time.Second
	readHeaderTimeout   = 10 * time.Second
)

// Exporter is the export capability the server needs.
// *mdexport.Exporter and *mdexport.ExporterPool satisfy it.
type Exporter interface {
	Export(ctx context.Context, req mdexport.Request) (*mdexport.Result, error)
}

// Config configures a Server.
type Config struct {
	Addr         string
	Root         string        // relative request paths resolve against it
	RateLimit    int           // requests per client per window, 0 disables
	RateWindow   time.Duration // defaults to one minute
	MaxBodyBytes int64         // defaults to DefaultMaxBodyBytes
	Version      string
	Logger       *slog.Logger
}

// Server is the HTTP adapter around an Exporter.
type Server struct {
	exporter Exporter
	cfg      Config
	logger   *slog.Logger
	router   chi.Router
}

// New builds a server and its routes.
func New(exp Exporter, cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		exporter: exp,
		cfg:      cfg,
		logger:   cfg.Logger,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(requestID)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RateLimit > 0 {
		s.router.Use(httprate.Limit(
			s.cfg.RateLimit,
			s.cfg.RateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusTooManyRequests, errorBody{Kind: "RateLimited", Message: "too many requests"})
			}),
		))
	}

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/capabilities", s.handleCapabilities)
	s.router.Post("/export/{format}", s.handleExport)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownWait)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// exportBody is the JSON body of POST /export/{format}.
type exportBody struct {
	Path     string             `json:"path"`
	Diagrams []mdexport.Diagram `json:"mermaidDiagrams"`
	DPI      int                `json:"dpi,omitempty"`
	Page     *pageBody          `json:"page,omitempty"`
}

type pageBody struct {
	Size        string  `json:"size"`
	Orientation string  `json:"orientation"`
	Margin      float64 `json:"margin"`
}

// errorBody is the JSON body of every failed response.
type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := mdexport.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var body exportBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, &mdexport.Error{
			Kind:    mdexport.InvalidRequest,
			Message: "invalid request body: " + err.Error(),
			Err:     err,
		})
		return
	}

	req := mdexport.Request{
		Path:     s.resolvePath(body.Path),
		Format:   format,
		Diagrams: body.Diagrams,
		DPI:      body.DPI,
	}
	if body.Page != nil {
		req.Page = &mdexport.PageSettings{
			Size:        body.Page.Size,
			Orientation: body.Page.Orientation,
			Margin:      body.Page.Margin,
		}
	}

	res, err := s.exporter.Export(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", res.MIMEType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	for _, warning := range res.Warnings {
		h.Add("X-Export-Warning", headerSafe(warning))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		s.logger.Debug("writing response", "error", err)
	}
}

// capabilities is the JSON body of GET /capabilities.
type capabilities struct {
	Path       string            `json:"path"`
	Exportable bool              `json:"exportable"`
	Formats    []mdexport.Format `json:"formats"`
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		s.writeError(w, r, &mdexport.Error{
			Kind:    mdexport.InvalidRequest,
			Message: "missing path query parameter",
			Err:     mdexport.ErrEmptyPath,
		})
		return
	}
	resp := capabilities{Path: path, Formats: []mdexport.Format{}}
	if mdexport.CanExport(path) {
		resp.Exportable = true
		resp.Formats = mdexport.Formats
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.cfg.Version})
}

// resolvePath anchors relative request paths at the configured root.
func (s *Server) resolvePath(p string) string {
	if p == "" || s.cfg.Root == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.cfg.Root, p)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := mdexport.KindOf(err)
	status := kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		s.logger.Error("export failed", "request_id", RequestIDFrom(r.Context()), "error", err)
	}
	writeJSON(w, status, errorBody{Kind: kind.String(), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// headerSafe strips characters that cannot appear in a header value.
func headerSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}
