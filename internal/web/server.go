package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lucasnoah/ragdebug/internal/metrics"
	"github.com/lucasnoah/ragdebug/internal/orchestrator"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

//go:embed templates
var templateFS embed.FS

var funcMap = template.FuncMap{
	"badgeClass": func(status string) string {
		return "badge badge-" + strings.ReplaceAll(status, "_", "-")
	},
	"passClass": func(v *pipeline.Validation) string {
		if v != nil && v.Success {
			return "result-pass"
		}
		return "result-fail"
	},
}

// maxBody caps request bodies; error logs are text and rarely large.
const maxBody = 1 << 20

// Runner executes one debugging run. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, opts orchestrator.RunOpts) *pipeline.Result
}

// Server serves the debugging form and its JSON API.
type Server struct {
	runner Runner
	addr   string
	logger *slog.Logger
	router chi.Router

	indexTmpl  *template.Template
	resultTmpl *template.Template
}

// NewServer creates a Server with parsed templates and routes.
func NewServer(runner Runner, addr string, logger *slog.Logger) *Server {
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{
		runner:     runner,
		addr:       addr,
		logger:     logger,
		indexTmpl:  mustParseTmpl("base.html", "index.html"),
		resultTmpl: mustParseTmpl("base.html", "result.html"),
	}
	s.router = s.buildRouter()
	return s
}

func mustParseTmpl(names ...string) *template.Template {
	patterns := make([]string, len(names))
	for i, n := range names {
		patterns[i] = "templates/" + n
	}
	return template.Must(template.New("").Funcs(funcMap).ParseFS(templateFS, patterns...))
}

// ServeHTTP delegates to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Post("/debug", s.handleDebugForm)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/debug", s.handleDebugAPI)
	})
	return r
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      10 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
