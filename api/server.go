package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thisisjab/docquery/entity"
	"github.com/thisisjab/docquery/matcher"
	"github.com/thisisjab/docquery/search"
	"github.com/thisisjab/docquery/storage"
)

// Recorder keeps evaluated verdicts, e.g. storage.BufferedStore.
type Recorder interface {
	Add(ctx context.Context, verdicts ...entity.Verdict)
}

type Services struct {
	Matcher matcher.Matcher
	// Search holds the defaults a request may override.
	Search search.Options
	// Recorder and History are optional.
	Recorder Recorder
	History  storage.History
}

type server struct {
	cfg      Config
	logger   *slog.Logger
	services Services
}

func NewServer(cfg Config, logger *slog.Logger, services Services) (*server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if services.Matcher == nil {
		return nil, errors.New("api server requires a matcher")
	}

	return &server{
		cfg:      cfg,
		logger:   logger,
		services: services,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthcheck", s.healthCheckHandler)
	mux.HandleFunc("POST /api/evaluate", s.evaluateHandler)
	mux.HandleFunc("POST /api/parse", s.parseHandler)
	mux.HandleFunc("GET /api/verdicts", s.listVerdictsHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.recoverPanicMiddleware(s.requestLoggerMiddleware(s.metricsMiddleware(s.corsMiddleware(mux))))
}

func (s *server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", s.cfg.Addr, err)
	}

	return s.serveListener(ctx, ln)
}

// serveListener returns once ctx is done and every in-flight request has
// finished, or the shutdown timeout has passed.
func (s *server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler: s.routes(),
	}

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server", "addr", ln.Addr().String())

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.shutdownTimeout())
		defer cancel()

		shutdownErr <- srv.Shutdown(shutdownCtx)
	}()

	var serverErr error
	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		s.logger.Info("starting server with TLS", "addr", ln.Addr().String())
		serverErr = srv.ServeTLS(ln, s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		s.logger.Info("starting server without TLS", "addr", ln.Addr().String())
		serverErr = srv.Serve(ln)
	}

	if !errors.Is(serverErr, http.ErrServerClosed) {
		return serverErr
	}

	// Serve returns as soon as Shutdown starts, while handlers may still run.
	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("cannot shutdown server gracefully: %w", err)
	}

	return nil
}
