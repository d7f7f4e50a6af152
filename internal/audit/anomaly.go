package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/config"
)

// ActivityCounter counts an actor's records in a trailing window.
type ActivityCounter interface {
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// Heuristic flags activity as unusual when it happens outside active hours or when the
// actor has produced an abnormal number of records in the trailing window.
type Heuristic struct {
	counter      ActivityCounter
	threshold    int64
	window       time.Duration
	activeFrom   int
	activeUntil  int
	queryTimeout time.Duration
	loc          *time.Location
}

// NewHeuristic builds a Heuristic from the audit.anomaly settings.
func NewHeuristic(counter ActivityCounter, cfg config.AnomalyConfig, loc *time.Location) *Heuristic {
	if loc == nil {
		loc = time.UTC
	}
	return &Heuristic{
		counter:      counter,
		threshold:    int64(cfg.VolumeThreshold),
		window:       cfg.Window,
		activeFrom:   cfg.ActiveFromHour,
		activeUntil:  cfg.ActiveUntilHour,
		queryTimeout: cfg.QueryTimeout,
		loc:          loc,
	}
}

// IsUnusual reports whether an action performed at now should be flagged.
// The active-hours rule is checked first so the count query only runs during the day.
// A failed count never flags.
func (h *Heuristic) IsUnusual(ctx context.Context, actorID *string, action string, now time.Time) bool {
	if h.outsideActiveHours(now) {
		return true
	}
	if actorID == nil || h.counter == nil {
		return false
	}

	if h.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queryTimeout)
		defer cancel()
	}

	count, err := h.counter.CountSince(ctx, *actorID, now.Add(-h.window))
	if err != nil {
		slog.Warn("unusual-activity volume check failed", "error", err, "action", action)
		return false
	}
	return count > h.threshold
}

func (h *Heuristic) outsideActiveHours(now time.Time) bool {
	hour := now.In(h.loc).Hour()
	return hour < h.activeFrom || hour > h.activeUntil
}
