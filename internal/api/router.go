package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-facility/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware(routePattern))
	}
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated monitoring
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.With(s.requirePermission(auth.PermSystemAdmin)).Get("/system", s.handleSystem)

			r.Route("/sites", func(r chi.Router) {
				r.Use(s.requirePermission(auth.PermManifestRead))
				r.Get("/", s.handleListSites)

				r.Route("/{siteID}", func(r chi.Router) {
					r.Use(s.siteAccessMiddleware)
					r.Get("/hours/{date}", s.handleResolveHours)
					r.Get("/manifests", s.handleListManifests)
					r.Get("/manifests/{date}", s.handleGetManifest)
					r.With(s.requirePermission(auth.PermManifestCompile)).
						Post("/manifests/{date}/compile", s.handleCompile)
				})
			})
		})
	})

	return r
}

// routePattern labels metrics with the matched chi pattern rather than the
// raw path, keeping label cardinality bounded.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
