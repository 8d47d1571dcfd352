package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the admin view of process state.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

const bytesPerMB = 1024 * 1024

// handleMetrics serves the Prometheus exposition when metrics are enabled.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeNotFound(w, "metrics are disabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

// handleSystem reports runtime and hub statistics.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	writeJSON(w, http.StatusOK, SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(mem.TotalAlloc) / bytesPerMB,
			NumGC:         mem.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
	})
}
