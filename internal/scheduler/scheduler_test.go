package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/manifest"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

var today = timeutil.MustParseDate("2026-03-02")

type fakeSites struct {
	sites []facility.Site
	err   error
}

func (f *fakeSites) ListSites(context.Context) ([]facility.Site, error) { return f.sites, f.err }

func makeSites(n int) *fakeSites {
	f := &fakeSites{}
	for i := 1; i <= n; i++ {
		f.sites = append(f.sites, facility.Site{ID: fmt.Sprintf("site-%03d", i), Timezone: "UTC"})
	}
	return f
}

type fakeCompiler struct {
	mu       sync.Mutex
	calls    []string
	failing  map[string]bool
	inFlight int
	maxSeen  int
	delay    time.Duration
	block    chan struct{}
}

func (f *fakeCompiler) Today(facility.Site) timeutil.Date { return today }

func (f *fakeCompiler) Compile(ctx context.Context, siteID string, date timeutil.Date) (*manifest.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, siteID+"@"+date.String())
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.failing[siteID] {
		return nil, errors.New("site hours unreadable")
	}
	return &manifest.Result{}, nil
}

func (f *fakeCompiler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnce_FailureIsolated(t *testing.T) {
	sites := makeSites(5)
	comp := &fakeCompiler{failing: map[string]bool{"site-002": true, "site-004": true}}
	s := New(sites, comp, Config{Concurrency: 2})

	summary, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if summary.Sites != 5 || summary.Succeeded != 3 || summary.Failed != 2 {
		t.Errorf("summary = %+v, want 5 sites, 3 ok, 2 failed", summary)
	}
	if comp.callCount() != 5 {
		t.Errorf("compiled %d sites, want 5", comp.callCount())
	}
	for _, c := range comp.calls {
		if c[len(c)-10:] != "2026-03-02" {
			t.Errorf("call %q did not use the site's today", c)
		}
	}
}

func TestRunOnce_ConcurrencyBounded(t *testing.T) {
	comp := &fakeCompiler{delay: 20 * time.Millisecond}
	s := New(makeSites(8), comp, Config{Concurrency: 3})

	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if comp.maxSeen > 3 {
		t.Errorf("max concurrent compiles = %d, want <= 3", comp.maxSeen)
	}
	if comp.maxSeen < 2 {
		t.Errorf("max concurrent compiles = %d, expected parallelism", comp.maxSeen)
	}
}

func TestRunOnce_ListFailure(t *testing.T) {
	s := New(&fakeSites{err: errors.New("database is locked")}, &fakeCompiler{}, Config{})
	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Error("RunOnce should fail when sites cannot be listed")
	}
}

func TestRunOnce_RejectsOverlap(t *testing.T) {
	comp := &fakeCompiler{block: make(chan struct{})}
	s := New(makeSites(1), comp, Config{})

	done := make(chan error, 1)
	go func() {
		_, err := s.RunOnce(context.Background())
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for comp.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first run never started")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("overlapping RunOnce err = %v, want ErrRunInProgress", err)
	}
	close(comp.block)
	if err := <-done; err != nil {
		t.Errorf("first run err = %v", err)
	}
}

func TestStartStop_RunOnStart(t *testing.T) {
	comp := &fakeCompiler{}
	s := New(makeSites(2), comp, Config{Interval: time.Hour, RunOnStart: true})

	s.Start(context.Background())
	deadline := time.Now().Add(2 * time.Second)
	for comp.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("run on start compiled %d sites, want 2", comp.callCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop() // idempotent
}

func TestStop_CancelsInFlightRun(t *testing.T) {
	comp := &fakeCompiler{block: make(chan struct{})}
	s := New(makeSites(1), comp, Config{Interval: time.Hour, RunOnStart: true})
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for comp.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("run never started")
		}
		time.Sleep(time.Millisecond)
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the blocked compile")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(makeSites(0), &fakeCompiler{}, Config{})
	if s.cfg.Interval != DefaultInterval || s.cfg.Concurrency != DefaultConcurrency {
		t.Errorf("defaults = %v / %d", s.cfg.Interval, s.cfg.Concurrency)
	}
}
