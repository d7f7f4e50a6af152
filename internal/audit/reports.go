package audit

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// ResponseTimeSource averages recorded response times since a point in time.
type ResponseTimeSource interface {
	AverageResponseTime(ctx context.Context, since time.Time) (float64, error)
}

// Reports answers the dashboard's activity questions.
type Reports struct {
	source ResponseTimeSource
	now    func() time.Time
}

// NewReports creates Reports over source.
func NewReports(source ResponseTimeSource) *Reports {
	return &Reports{source: source, now: time.Now}
}

// AverageResponseTime is the mean response_time_ms of the trailing 24 hours. It is 0
// when there were no records or the query failed.
func (r *Reports) AverageResponseTime(ctx context.Context) float64 {
	avg, err := r.source.AverageResponseTime(ctx, r.now().Add(-24*time.Hour))
	if err != nil {
		slog.Warn("failed to compute average response time", "error", err)
		return 0
	}
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 0
	}
	return avg
}

// SessionDurationMinutes is the number of whole minutes since sessionStart, or 0 when
// there is no session start or it lies in the future.
func (r *Reports) SessionDurationMinutes(sessionStart *time.Time) int64 {
	if sessionStart == nil {
		return 0
	}
	elapsed := r.now().Sub(*sessionStart)
	if elapsed <= 0 {
		return 0
	}
	return int64(elapsed / time.Minute)
}
