package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	//nolint:gosec // only exposed if pprofAddr config is set
	_ "net/http/pprof"

	"github.com/ethpandaops/etlaudit/pkg/observability"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Component is a service started and stopped alongside the server
type Component interface {
	Start(ctx context.Context) error
	Stop() error
}

// Server represents the main application server
type Server struct {
	log    logrus.FieldLogger
	config *Config

	components []Component

	pprofServer  *http.Server
	healthServer *http.Server
}

// NewServer creates a new server instance
func NewServer(log logrus.FieldLogger, config *Config, components ...Component) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Server{
		config:     config,
		log:        log.WithField("component", "server"),
		components: components,
	}, nil
}

// Start runs every configured surface until ctx is done, then shuts them down
func (s *Server) Start(ctx context.Context) error {
	for _, component := range s.components {
		if err := component.Start(ctx); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	observability.StartMetricsServer(ctx, s.config.MetricsAddr)

	if s.config.PProfAddr != nil {
		s.pprofServer = s.newPProfServer()
		g.Go(func() error {
			return listen(s.pprofServer)
		})
	}

	if s.config.HealthCheckAddr != nil {
		s.healthServer = s.newHealthServer()
		g.Go(func() error {
			return listen(s.healthServer)
		})
	}

	// Wait for shutdown signal
	g.Go(func() error {
		<-ctx.Done()

		// Use a fresh context for cleanup since the current one is canceled
		return s.stop(context.Background())
	})

	return g.Wait()
}

func (s *Server) stop(ctx context.Context) error {
	cleanupCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.log.Info("Starting graceful shutdown...")

	var errs []error

	for _, component := range s.components {
		if err := component.Stop(); err != nil {
			s.log.WithError(err).Error("failed to stop component")
			errs = append(errs, err)
		}
	}

	if s.pprofServer != nil {
		if err := s.pprofServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown pprof server")
		}
	}

	if s.healthServer != nil {
		if err := s.healthServer.Shutdown(cleanupCtx); err != nil {
			s.log.WithError(err).Error("failed to shutdown health server")
		}
	}

	s.log.Info("Server stopped gracefully")

	return errors.Join(errs...)
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) newPProfServer() *http.Server {
	s.log.WithField("addr", *s.config.PProfAddr).Info("Starting pprof server")

	return &http.Server{
		Addr:              *s.config.PProfAddr,
		ReadHeaderTimeout: 120 * time.Second,
	}
}

func (s *Server) newHealthServer() *http.Server {
	s.log.WithField("addr", *s.config.HealthCheckAddr).Info("Starting healthcheck server")

	return &http.Server{
		Addr:              *s.config.HealthCheckAddr,
		ReadHeaderTimeout: 120 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	}
}
