// Package audit keeps a bounded in-memory trail of authorization lifecycle
// events, mirrored to the structured log. The trail backs the admin audit
// endpoint; the log is the durable record.
package audit

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const defaultCapacity = 500

// Entry is one recorded lifecycle event.
type Entry struct {
	At          time.Time `json:"at"`
	Action      string    `json:"action"`
	PerformedBy string    `json:"performed_by"`
	RequestID   uuid.UUID `json:"request_id"`
	Details     string    `json:"details,omitempty"`
}

// Trail holds the most recent entries, newest last. When capacity is
// exceeded the oldest entries are discarded.
type Trail struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	logger   zerolog.Logger
}

func NewTrail(capacity int, logger zerolog.Logger) *Trail {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Trail{
		capacity: capacity,
		logger:   logger.With().Str("component", "audit").Logger(),
	}
}

// Record appends an entry, evicting the oldest when full.
func (t *Trail) Record(at time.Time, action, performedBy string, requestID uuid.UUID, details string) {
	t.logger.Info().
		Time("at", at).
		Str("action", action).
		Str("performed_by", performedBy).
		Str("request_id", requestID.String()).
		Str("details", details).
		Msg("authorization audit event")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{
		At:          at,
		Action:      action,
		PerformedBy: performedBy,
		RequestID:   requestID,
		Details:     details,
	})
	if len(t.entries) > t.capacity {
		t.entries = t.entries[len(t.entries)-t.capacity:]
	}
}

// Entries returns a copy of the trail, newest last.
func (t *Trail) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// EntriesForRequest returns the entries recorded for one authorization.
func (t *Trail) EntriesForRequest(requestID uuid.UUID) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []Entry
	for _, e := range t.entries {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of retained entries.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// RegisterRoutes exposes the trail for admin inspection.
func (t *Trail) RegisterRoutes(g *echo.Group) {
	g.GET("/audit-trail", t.handleList)
	g.GET("/audit-trail/:requestId", t.handleListForRequest)
}

func (t *Trail) handleList(c echo.Context) error {
	return c.JSON(http.StatusOK, t.Entries())
}

func (t *Trail) handleListForRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("requestId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	return c.JSON(http.StatusOK, t.EntriesForRequest(id))
}
