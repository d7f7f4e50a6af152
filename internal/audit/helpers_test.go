package audit

import (
	"context"
	"sync"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

// Lima has no DST, so a fixed zone matches it without relying on the host tzdata.
var lima = time.FixedZone("PET", -5*60*60)

// wednesday 10:30 in Lima
var daytime = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

func at(hour int) time.Time {
	return time.Date(2026, 3, 4, hour, 15, 0, 0, lima)
}

type fakeStore struct {
	mu   sync.Mutex
	logs []*models.ActivityLog
	err  error
}

func (s *fakeStore) Append(_ context.Context, log *models.ActivityLog) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.logs = append(s.logs, log)
	log.ID = int64(len(s.logs))
	return log.ID, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// captureWriter records what the enricher hands over.
type captureWriter struct {
	mu   sync.Mutex
	logs []*models.ActivityLog
	err  error
}

func (w *captureWriter) Write(_ context.Context, log *models.ActivityLog) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.logs = append(w.logs, log)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func (w *captureWriter) last() *models.ActivityLog {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.logs) == 0 {
		return nil
	}
	return w.logs[len(w.logs)-1]
}

type fixedDetector bool

func (d fixedDetector) IsUnusual(context.Context, *string, string, time.Time) bool { return bool(d) }

// stepClock returns the queued instants in order, repeating the last one.
type stepClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return t
}
