package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-facility/internal/manifest"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// maxListLimit caps ?limit= on the manifest list.
const maxListLimit = 366

// ManifestListItem is one row of the manifest list, without the document.
type ManifestListItem struct {
	ID         string              `json:"id"`
	Date       timeutil.Date       `json:"date"`
	CompiledAt time.Time           `json:"compiled_at"`
	PushStatus manifest.PushStatus `json:"push_status"`
	PushError  *string             `json:"push_error,omitempty"`
	PushedAt   *time.Time          `json:"pushed_at,omitempty"`
}

// handleListManifests returns the site's most recent manifests, newest first.
func (s *Server) handleListManifests(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")

	limit := manifest.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeBadRequest(w, "limit must be between 1 and 366")
			return
		}
		limit = n
	}

	if _, err := s.sites.GetSite(r.Context(), siteID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	records, err := s.manifests.List(r.Context(), siteID, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	items := make([]ManifestListItem, 0, len(records))
	for _, rec := range records {
		items = append(items, ManifestListItem{
			ID:         rec.ID,
			Date:       rec.Date,
			CompiledAt: rec.CompiledAt,
			PushStatus: rec.PushStatus,
			PushError:  rec.PushError,
			PushedAt:   rec.PushedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"site_id":   siteID,
		"manifests": items,
		"count":     len(items),
	})
}

// handleGetManifest returns the stored manifest row including its document.
func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	date, err := s.resolveDate(r, siteID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rec, err := s.manifests.Get(r.Context(), siteID, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleCompile compiles, stores and distributes the manifest now.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	date, err := s.resolveDate(r, siteID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	claims := claimsFromContext(r.Context())
	s.logger.Site(siteID, date.String()).Info("on-demand compile",
		"subject", claims.Subject,
		"request_id", requestIDFrom(r.Context()),
	)

	res, err := s.compiler.Compile(r.Context(), siteID, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":  res.Summary(),
		"manifest": res.Manifest,
	})
}
