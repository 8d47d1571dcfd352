package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/hours"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-facility/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-facility/internal/manifest"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// SiteStore reads sites.
type SiteStore interface {
	ListSites(ctx context.Context) ([]facility.Site, error)
	GetSite(ctx context.Context, id string) (*facility.Site, error)
}

// Compiler compiles manifests and resolves hours.
type Compiler interface {
	Compile(ctx context.Context, siteID string, date timeutil.Date) (*manifest.Result, error)
	ResolveHours(ctx context.Context, siteID string, date timeutil.Date) (*hours.Resolution, error)
	Today(site facility.Site) timeutil.Date
}

// ManifestStore reads stored manifests.
type ManifestStore interface {
	Get(ctx context.Context, siteID string, date timeutil.Date) (*manifest.Record, error)
	List(ctx context.Context, siteID string, limit int) ([]manifest.Record, error)
}

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Logger    *logging.Logger
	Sites     SiteStore
	Compiler  Compiler
	Manifests ManifestStore
	Metrics   *metrics.Collector // optional
	Health    map[string]HealthChecker
	Hub       *Hub // If set, the server uses this hub instead of creating its own
	Version   string
}

// Server is the HTTP API server.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	logger    *logging.Logger
	sites     SiteStore
	compiler  Compiler
	manifests ManifestStore
	metrics   *metrics.Collector
	health    map[string]HealthChecker
	version   string
	server    *http.Server
	hub       *Hub
	tickets   *ticketStore
	started   time.Time
	cancel    context.CancelFunc
}

// New creates a server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sites == nil || deps.Compiler == nil || deps.Manifests == nil {
		return nil, fmt.Errorf("site store, compiler and manifest store are required")
	}
	if deps.Security.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		logger:    deps.Logger,
		sites:     deps.Sites,
		compiler:  deps.Compiler,
		manifests: deps.Manifests,
		metrics:   deps.Metrics,
		health:    deps.Health,
		version:   deps.Version,
		hub:       deps.Hub,
		tickets:   newTicketStore(),
		started:   time.Now(),
	}
	if s.hub == nil {
		s.hub = NewHub(deps.Logger)
	}
	return s, nil
}

// Hub returns the WebSocket hub, for wiring as the compiler's broadcaster.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler { return s.buildRouter() }

// Start launches the listener in a background goroutine together with the
// hub and ticket cleanup loops.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.tickets.cleanLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close waits up to 10 seconds for in-flight requests, then stops.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the listener has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
