package export

import (
	"strings"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
)

// FilterParams are the raw listing and export filters as they arrive from a query string
// or command-line flags. Empty fields are ignored.
type FilterParams struct {
	UserID     string
	Action     string
	DeviceType string
	Search     string
	From       string
	To         string
}

// FilterError is a caller mistake in the filters.
type FilterError struct{ msg string }

func (e *FilterError) Error() string { return e.msg }

// ParseFilters validates p. From and To accept RFC3339 or a YYYY-MM-DD date in loc; a
// bare To date includes the whole day.
func ParseFilters(p FilterParams, loc *time.Location) (repositories.ActivityFilters, error) {
	var f repositories.ActivityFilters
	if loc == nil {
		loc = time.UTC
	}

	if p.UserID != "" {
		f.UserID = &p.UserID
	}
	if p.Action != "" {
		f.Action = &p.Action
	}
	if p.DeviceType != "" {
		switch models.DeviceClass(p.DeviceType) {
		case models.DevicePhone, models.DeviceTablet, models.DeviceDesktop, models.DeviceUnknown:
		default:
			return f, &FilterError{"device_type must be one of phone, tablet, desktop, unknown"}
		}
		f.DeviceType = &p.DeviceType
	}
	if v := strings.TrimSpace(p.Search); v != "" {
		f.Search = &v
	}

	if p.From != "" {
		t, _, err := parseBound(p.From, loc)
		if err != nil {
			return f, &FilterError{"invalid from: " + p.From}
		}
		f.StartDate = &t
	}
	if p.To != "" {
		t, dateOnly, err := parseBound(p.To, loc)
		if err != nil {
			return f, &FilterError{"invalid to: " + p.To}
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		f.EndDate = &t
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return f, &FilterError{"to must not be before from"}
	}

	return f, nil
}

func parseBound(v string, loc *time.Location) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	return t, true, err
}
