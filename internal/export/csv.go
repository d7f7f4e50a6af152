// Package export renders the activity trail as CSV and archives those files in the
// configured object storage. Rows are read in keyset-paged batches so an export never
// holds the full result set in memory on the database side.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
)

// ContentType is the MIME type of every export.
const ContentType = "text/csv; charset=utf-8"

// Header is the first CSV row.
var Header = []string{
	"id", "created_at", "user_id", "action", "description", "device_type", "app_state",
	"route", "ip_address", "user_agent", "response_time_ms", "is_unusual", "metadata",
}

// Source streams activity records newest first. Implemented by
// repositories.ActivityLogRepository.
type Source interface {
	Stream(ctx context.Context, filters repositories.ActivityFilters, batchSize int, fn func([]*models.ActivityLog) error) error
}

// WriteCSV writes the header and every record matching filters to w and returns the number
// of data rows written. The writer is flushed after each batch.
func WriteCSV(ctx context.Context, w io.Writer, src Source, filters repositories.ActivityFilters, batchSize int) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}

	rows := 0
	err := src.Stream(ctx, filters, batchSize, func(batch []*models.ActivityLog) error {
		for _, log := range batch {
			record, err := Row(log)
			if err != nil {
				return err
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write csv row: %w", err)
			}
			rows++
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return rows, err
	}

	cw.Flush()
	return rows, cw.Error()
}

// Row renders one record in Header order. Absent optional columns are empty cells.
func Row(log *models.ActivityLog) ([]string, error) {
	meta, err := json.Marshal(log.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata of activity %d: %w", log.ID, err)
	}

	responseTime := ""
	if v, ok := log.ResponseTimeMS(); ok {
		responseTime = strconv.FormatFloat(v, 'f', -1, 64)
	}

	return []string{
		strconv.FormatInt(log.ID, 10),
		log.CreatedAt.UTC().Format(time.RFC3339),
		value(log.UserID),
		log.Action,
		value(log.Description),
		string(log.DeviceType),
		log.AppState,
		value(log.Route),
		value(log.IPAddress),
		value(log.UserAgent),
		responseTime,
		strconv.FormatBool(log.IsUnusual()),
		string(meta),
	}, nil
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
