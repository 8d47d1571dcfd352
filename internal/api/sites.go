package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-facility/internal/facility"
	"github.com/nerrad567/gray-logic-facility/internal/timeutil"
)

// todayParam stands in for the site's local current date in {date}.
const todayParam = "today"

var errInvalidDate = errors.New("date must be YYYY-MM-DD or today")

// handleListSites returns the sites visible to the caller's token.
func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := s.sites.ListSites(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	claims := claimsFromContext(r.Context())
	visible := make([]facility.Site, 0, len(sites))
	for _, site := range sites {
		if claims.CanAccessSite(site.ID) {
			visible = append(visible, site)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sites": visible,
		"count": len(visible),
	})
}

// handleResolveHours returns the effective hours for a date without
// compiling or storing anything.
func (s *Server) handleResolveHours(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	date, err := s.resolveDate(r, siteID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.compiler.ResolveHours(r.Context(), siteID, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"site_id": siteID,
		"date":    date,
		"hours":   res,
	})
}

// resolveDate reads {date}, translating "today" through the site's zone.
func (s *Server) resolveDate(r *http.Request, siteID string) (timeutil.Date, error) {
	raw := chi.URLParam(r, "date")
	if raw == todayParam {
		site, err := s.sites.GetSite(r.Context(), siteID)
		if err != nil {
			return timeutil.Date{}, err
		}
		return s.compiler.Today(*site), nil
	}

	d, err := timeutil.ParseDate(raw)
	if err != nil {
		return timeutil.Date{}, errInvalidDate
	}
	return d, nil
}
