package api

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 5 * time.Second

// ComponentHealth is one dependency's result in the health response.
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth checks every registered dependency concurrently. Any
// failure marks the service degraded with a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]ComponentHealth, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, checker HealthChecker) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.HealthCheck(ctx); err != nil {
				results[i] = ComponentHealth{Status: "error", Error: err.Error()}
				return
			}
			results[i] = ComponentHealth{Status: "ok"}
		}(i, s.health[name])
	}
	wg.Wait()

	status, code := "ok", http.StatusOK
	components := make(map[string]ComponentHealth, len(names))
	for i, name := range names {
		components[name] = results[i]
		if results[i].Status != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}
