package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-facility/internal/auth"
)

// ticketTTL is how long a WebSocket ticket is valid.
const ticketTTL = 60 * time.Second

// ticketStore holds pending single-use WebSocket tickets.
type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
	now     func() time.Time
}

type ticketEntry struct {
	claims    *auth.Claims
	expiresAt time.Time
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry), now: time.Now}
}

func (ts *ticketStore) issue(claims *auth.Claims) string {
	ticket := uuid.NewString()
	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{claims: claims, expiresAt: ts.now().Add(ticketTTL)}
	ts.mu.Unlock()
	return ticket
}

// consume validates and removes a ticket.
func (ts *ticketStore) consume(ticket string) (*auth.Claims, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return nil, false
	}
	delete(ts.tickets, ticket)
	if !ts.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.claims, true
}

func (ts *ticketStore) cleanExpired() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	now := ts.now()
	for ticket, entry := range ts.tickets {
		if !now.Before(entry.expiresAt) {
			delete(ts.tickets, ticket)
		}
	}
}

func (ts *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ts.cleanExpired()
		}
	}
}

// handleWSTicket issues a single-use ticket bound to the caller's claims.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	ticket := s.tickets.issue(claimsFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}
