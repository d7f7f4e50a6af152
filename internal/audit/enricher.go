// Package audit records user activity. The Enricher turns a bare (action, description,
// data) triple into a full activity record by adding who did it, from where, on which
// device, how long the request had been running, and whether it looks unusual. Records
// are handed to a Writer; a failure to persist is logged and counted but never returned
// to the code that asked for the record.
package audit

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/telemetry"
)

// RequestInfo is the request context captured when a Recorder starts. Every field is
// optional; background jobs pass the zero value.
type RequestInfo struct {
	ClientIP  string
	UserAgent string
	Route     string
	AppState  string
	RequestID string
}

// UnusualDetector decides whether an action should be flagged.
type UnusualDetector interface {
	IsUnusual(ctx context.Context, actorID *string, action string, now time.Time) bool
}

// Enricher builds and writes activity records.
type Enricher struct {
	writer          Writer
	detector        UnusualDetector
	loc             *time.Location
	defaultAppState string
	now             func() time.Time
}

// Option customises an Enricher.
type Option func(*Enricher)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Enricher) { e.now = now }
}

// WithDefaultAppState sets the app_state recorded when RequestInfo carries none.
func WithDefaultAppState(state string) Option {
	return func(e *Enricher) { e.defaultAppState = state }
}

// NewEnricher creates an Enricher. detector may be nil, in which case nothing is flagged.
// loc is the reporting time zone for hour_of_day, day_of_week and is_weekend.
func NewEnricher(writer Writer, detector UnusualDetector, loc *time.Location, opts ...Option) *Enricher {
	if loc == nil {
		loc = time.UTC
	}
	e := &Enricher{
		writer:          writer,
		detector:        detector,
		loc:             loc,
		defaultAppState: "active",
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Begin starts a Recorder for one request or operation. The start time it captures is
// what response_time_ms is measured from.
func (e *Enricher) Begin(info RequestInfo) *Recorder {
	return &Recorder{enricher: e, info: info, start: e.now()}
}

// Log records an activity using the Recorder carried by ctx, or a fresh detached one when
// ctx has none (background jobs, CLI commands).
func (e *Enricher) Log(ctx context.Context, action, description string, data models.Metadata) {
	r := RecorderFrom(ctx)
	if r == nil || r.enricher != e {
		r = e.Begin(RequestInfo{})
	}
	r.Log(ctx, action, description, data)
}

// Recorder is the per-request handle that holds the request start time and context.
type Recorder struct {
	enricher *Enricher
	info     RequestInfo
	start    time.Time
}

// Info returns the request context captured by Begin.
func (r *Recorder) Info() RequestInfo {
	return r.info
}

// Start returns the time Begin was called.
func (r *Recorder) Start() time.Time {
	return r.start
}

// Log builds one record and hands it to the writer. It never fails: persistence errors
// are logged and counted. An empty description is stored as NULL.
func (r *Recorder) Log(ctx context.Context, action, description string, data models.Metadata) {
	started := time.Now()
	log := r.build(ctx, action, description, data)
	telemetry.ActivityEnrichDuration.Observe(time.Since(started).Seconds())

	if log.IsUnusual() {
		telemetry.ActivityUnusualTotal.WithLabelValues(action).Inc()
	}

	if err := r.enricher.writer.Write(ctx, log); err != nil {
		telemetry.ActivityWriteFailuresTotal.Inc()
		slog.Warn("failed to record user activity", "error", err, "action", action)
	}
}

func (r *Recorder) build(ctx context.Context, action, description string, data models.Metadata) *models.ActivityLog {
	e := r.enricher
	now := e.now()
	local := now.In(e.loc)
	actor := ActorFromContext(ctx)

	unusual := false
	if e.detector != nil {
		unusual = e.detector.IsUnusual(ctx, actor, action, now)
	}

	elapsed := float64(now.Sub(r.start)) / float64(time.Millisecond)
	if elapsed < 0 {
		elapsed = 0
	}

	meta := data.Clone()
	if r.info.RequestID != "" {
		meta[models.MetaRequestID] = r.info.RequestID
	}
	meta = meta.Merge(models.Metadata{
		models.MetaResponseTimeMS: math.Round(elapsed*100) / 100,
		models.MetaIsWeekend:      local.Weekday() == time.Saturday || local.Weekday() == time.Sunday,
		models.MetaHourOfDay:      local.Hour(),
		models.MetaDayOfWeek:      int(local.Weekday()),
		models.MetaGeoLocation:    nil,
		models.MetaIsUnusual:      unusual,
	})

	appState := r.info.AppState
	if appState == "" {
		appState = e.defaultAppState
	}

	return &models.ActivityLog{
		UserID:      actor,
		Action:      action,
		Description: optional(description),
		IPAddress:   optional(r.info.ClientIP),
		UserAgent:   optional(r.info.UserAgent),
		DeviceType:  ClassifyDevice(r.info.UserAgent),
		AppState:    appState,
		Route:       optional(r.info.Route),
		Metadata:    meta,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
