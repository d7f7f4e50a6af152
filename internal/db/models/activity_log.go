// Package models - activity_log.go defines ActivityLog, one append-only row of the
// user activity trail, together with the device classes and well-known actions.
package models

import "time"

// DeviceClass is the coarse client form factor derived from the user agent.
type DeviceClass string

const (
	DevicePhone   DeviceClass = "phone"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceUnknown DeviceClass = "unknown"
)

// Well-known actions. The action column is an open set; callers may log others.
const (
	ActionPageView     = "page_view"
	ActionFileDownload = "file_download"
	ActionModelCreated = "model_created"
	ActionModelUpdated = "model_updated"
	ActionModelDeleted = "model_deleted"
)

// Keys the enricher always writes into Metadata, overriding caller values.
const (
	MetaResponseTimeMS = "response_time_ms"
	MetaIsWeekend      = "is_weekend"
	MetaHourOfDay      = "hour_of_day"
	MetaDayOfWeek      = "day_of_week"
	MetaGeoLocation    = "geo_location"
	MetaIsUnusual      = "is_unusual"
	MetaRequestID      = "request_id"
)

// ActivityLog is a single user activity record
type ActivityLog struct {
	ID          int64       `json:"id" db:"id"`
	UserID      *string     `json:"user_id,omitempty" db:"user_id"` // nil for unauthenticated actions
	Action      string      `json:"action" db:"action"`
	Description *string     `json:"description,omitempty" db:"description"`
	IPAddress   *string     `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent   *string     `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType  DeviceClass `json:"device_type" db:"device_type"`
	AppState    string      `json:"app_state" db:"app_state"`
	Route       *string     `json:"route,omitempty" db:"route"`
	Metadata    Metadata    `json:"metadata" db:"metadata"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

// IsUnusual reports the heuristic flag stored in Metadata.
func (l *ActivityLog) IsUnusual() bool {
	v, _ := l.Metadata.Bool(MetaIsUnusual)
	return v
}

// ResponseTimeMS reports the measured latency stored in Metadata.
func (l *ActivityLog) ResponseTimeMS() (float64, bool) {
	return l.Metadata.Float(MetaResponseTimeMS)
}
