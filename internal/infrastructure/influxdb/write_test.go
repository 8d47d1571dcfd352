package influxdb

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeWriter struct {
	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriter) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes++
}

func lineOf(p *write.Point) string {
	return write.PointToLineProtocol(p, time.Nanosecond)
}

func TestWriteManifestSummary(t *testing.T) {
	w := &fakeWriter{}
	c := newClient(nil, w)
	at := time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC)

	c.WriteManifestSummary("site-001", true, 3, 2, 1, 1500*time.Microsecond, at)

	if len(w.points) != 1 {
		t.Fatalf("points = %d, want 1", len(w.points))
	}
	line := lineOf(w.points[0])
	for _, want := range []string{
		"manifest_compile,site_id=site-001 ",
		"closed=true",
		"equipment_count=3i",
		"thermostat_count=2i",
		"error_count=1i",
		"duration_ms=1.5",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !w.points[0].Time().Equal(at) {
		t.Errorf("point time = %v, want %v", w.points[0].Time(), at)
	}
}

func TestWriteThermostatDirective(t *testing.T) {
	w := &fakeWriter{}
	c := newClient(nil, w)
	temp, target := 64.0, 68.0

	c.WriteThermostatDirective("site-001", "tstat-1", "heat", &temp, &target, time.Now())
	c.WriteThermostatDirective("site-001", "tstat-2", "hold_band", nil, nil, time.Now())

	if len(w.points) != 2 {
		t.Fatalf("points = %d, want 2", len(w.points))
	}
	first := lineOf(w.points[0])
	for _, want := range []string{"action=heat", "thermostat_id=tstat-1", "temperature=64", "target_setpoint=68"} {
		if !strings.Contains(first, want) {
			t.Errorf("line %q missing %q", first, want)
		}
	}
	second := lineOf(w.points[1])
	if strings.Contains(second, "temperature=") || strings.Contains(second, "target_setpoint=") {
		t.Errorf("nil readings should be omitted: %q", second)
	}
	if !strings.Contains(second, "count=1i") {
		t.Errorf("line %q missing count field", second)
	}
}

func TestWrites_DroppedWhenDisconnected(t *testing.T) {
	w := &fakeWriter{}
	c := newClient(nil, w)
	c.open.Store(false)

	c.WriteManifestSummary("site-001", false, 1, 1, 0, time.Second, time.Now())
	c.WriteThermostatDirective("site-001", "tstat-1", "cool", nil, nil, time.Now())
	c.Flush()

	if len(w.points) != 0 || w.flushes != 0 {
		t.Errorf("disconnected client wrote %d points, %d flushes", len(w.points), w.flushes)
	}
}
