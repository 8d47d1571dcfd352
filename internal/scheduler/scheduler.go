// Package scheduler compiles every site's manifest for its local "today"
// on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/manifest"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// Defaults applied by New for zero config values.
const (
	DefaultInterval    = 15 * time.Minute
	DefaultConcurrency = 4
)

// SiteLister lists the sites to compile.
type SiteLister interface {
	ListSites(ctx context.Context) ([]facility.Site, error)
}

// Compiler compiles one site's manifest. *manifest.Compiler satisfies it.
type Compiler interface {
	Compile(ctx context.Context, siteID string, date timeutil.Date) (*manifest.Result, error)
	Today(site facility.Site) timeutil.Date
}

// Logger is the subset of slog used here.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds scheduler settings.
type Config struct {
	// Interval between runs. Default: 15 minutes.
	Interval time.Duration

	// Concurrency caps how many sites compile at once. Default: 4.
	Concurrency int

	// RunOnStart triggers a run immediately on Start.
	RunOnStart bool

	Logger Logger
}

// RunSummary reports the outcome of one pass over all sites.
type RunSummary struct {
	Sites     int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Scheduler runs periodic compilation passes.
type Scheduler struct {
	sites    SiteLister
	compiler Compiler
	cfg      Config
	logger   Logger

	running  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a scheduler. Call Start to begin.
func New(sites SiteLister, compiler Compiler, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Scheduler{
		sites:    sites,
		compiler: compiler,
		cfg:      cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the run loop. It stops when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop signals the loop and waits for an in-progress run to finish.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-runCtx.Done():
		}
	}()

	s.logger.Info("scheduler started", "interval", s.cfg.Interval.String(), "concurrency", s.cfg.Concurrency)
	if s.cfg.RunOnStart {
		s.runLogged(runCtx)
	}

	for {
		select {
		case <-runCtx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runLogged(runCtx)
		}
	}
}

func (s *Scheduler) runLogged(ctx context.Context) {
	summary, err := s.RunOnce(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("scheduled compile run failed", "error", err)
		}
		return
	}
	s.logger.Info("scheduled compile run complete",
		"sites", summary.Sites,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"duration_ms", summary.Duration.Milliseconds(),
	)
}

// ErrRunInProgress is returned by RunOnce when a pass is already running.
var ErrRunInProgress = errors.New("scheduler: run already in progress")

// RunOnce compiles today's manifest for every site. A failing site is
// logged and counted; it never stops the others. The returned error is
// reserved for failing to list sites or an overlapping run.
func (s *Scheduler) RunOnce(ctx context.Context) (RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return RunSummary{}, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	sites, err := s.sites.ListSites(ctx)
	if err != nil {
		return RunSummary{}, fmt.Errorf("listing sites: %w", err)
	}

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, site := range sites {
		site := site
		g.Go(func() error {
			if gctx.Err() != nil {
				failed.Add(1)
				return nil
			}
			date := s.compiler.Today(site)
			if _, err := s.compiler.Compile(gctx, site.ID, date); err != nil {
				failed.Add(1)
				s.logger.Warn("scheduled compile failed", "site_id", site.ID, "date", date.String(), "error", err)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	//nolint:errcheck // workers never return errors
	g.Wait()

	return RunSummary{
		Sites:     len(sites),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
		Duration:  time.Since(start),
	}, ctx.Err()
}
