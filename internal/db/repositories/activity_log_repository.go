// activity_log_repository.go implements ActivityLogRepository, the append-only store of user
// activity records with the aggregate and filtered queries used by the heuristic and reports.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

const activityColumns = `id, user_id, action, description, ip_address, user_agent,
		device_type, app_state, route, metadata, created_at`

// ActivityLogRepository handles user_activity_logs database operations
type ActivityLogRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewActivityLogRepository creates a new ActivityLogRepository
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db, now: time.Now}
}

// ActivityFilters contains filters for querying activity records
type ActivityFilters struct {
	UserID     *string
	Action     *string
	DeviceType *string
	StartDate  *time.Time
	EndDate    *time.Time
	Search     *string
}

// likeEscaper makes LIKE wildcards in user input match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// where renders the filter predicates starting at placeholder $start.
func (f ActivityFilters) where(start int) (string, []interface{}, int) {
	clause := ""
	args := make([]interface{}, 0)
	paramIndex := start

	if f.UserID != nil {
		clause += fmt.Sprintf(` AND user_id = $%d`, paramIndex)
		args = append(args, *f.UserID)
		paramIndex++
	}

	if f.Action != nil {
		clause += fmt.Sprintf(` AND action = $%d`, paramIndex)
		args = append(args, *f.Action)
		paramIndex++
	}

	if f.DeviceType != nil {
		clause += fmt.Sprintf(` AND device_type = $%d`, paramIndex)
		args = append(args, *f.DeviceType)
		paramIndex++
	}

	if f.StartDate != nil {
		clause += fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		args = append(args, *f.StartDate)
		paramIndex++
	}

	if f.EndDate != nil {
		clause += fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		args = append(args, *f.EndDate)
		paramIndex++
	}

	if f.Search != nil && *f.Search != "" {
		clause += fmt.Sprintf(` AND (description ILIKE $%d ESCAPE '\' OR route ILIKE $%d ESCAPE '\')`, paramIndex, paramIndex)
		args = append(args, "%"+likeEscaper.Replace(*f.Search)+"%")
		paramIndex++
	}

	return clause, args, paramIndex
}

// Append persists a new record, assigning created_at and the generated id.
func (r *ActivityLogRepository) Append(ctx context.Context, log *models.ActivityLog) (int64, error) {
	log.CreatedAt = r.now().UTC()
	if log.Metadata == nil {
		log.Metadata = models.Metadata{}
	}
	if log.DeviceType == "" {
		log.DeviceType = models.DeviceUnknown
	}

	query := `
		INSERT INTO user_activity_logs (user_id, action, description, ip_address, user_agent,
			device_type, app_state, route, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		log.UserID,
		log.Action,
		log.Description,
		log.IPAddress,
		log.UserAgent,
		log.DeviceType,
		log.AppState,
		log.Route,
		log.Metadata,
		log.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert activity log: %w", err)
	}

	log.ID = id
	return id, nil
}

// CountSince counts the records of one actor created at or after since.
func (r *ActivityLogRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM user_activity_logs WHERE user_id = $1 AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, userID, since); err != nil {
		return 0, err
	}
	return count, nil
}

// AverageResponseTime averages metadata.response_time_ms over records created at or after
// since. Records without the key are ignored; an empty window yields 0.
func (r *ActivityLogRepository) AverageResponseTime(ctx context.Context, since time.Time) (float64, error) {
	var avg sql.NullFloat64
	query := `
		SELECT AVG((metadata->>'response_time_ms')::numeric)::float8
		FROM user_activity_logs
		WHERE created_at >= $1 AND metadata ? 'response_time_ms'
	`
	if err := r.db.GetContext(ctx, &avg, query, since); err != nil {
		return 0, err
	}
	if !avg.Valid || math.IsNaN(avg.Float64) {
		return 0, nil
	}
	return avg.Float64, nil
}

// Get retrieves a single record by id; nil when missing.
func (r *ActivityLogRepository) Get(ctx context.Context, id int64) (*models.ActivityLog, error) {
	var log models.ActivityLog
	query := `SELECT ` + activityColumns + ` FROM user_activity_logs WHERE id = $1`
	err := r.db.GetContext(ctx, &log, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// Query retrieves records with optional filters and pagination, newest first.
func (r *ActivityLogRepository) Query(ctx context.Context, filters ActivityFilters, limit, offset int) ([]*models.ActivityLog, int, error) {
	clause, args, paramIndex := filters.where(1)

	// Get total count
	var total int
	countQuery := `SELECT COUNT(*) FROM user_activity_logs WHERE 1=1` + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + activityColumns + ` FROM user_activity_logs WHERE 1=1` + clause +
		fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	logs := make([]*models.ActivityLog, 0)
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// Stream walks every record matching filters, newest first, handing fn one batch of at
// most batchSize rows at a time. Paging is keyset based on (created_at, id). An error
// returned by fn stops the walk and is returned unchanged.
func (r *ActivityLogRepository) Stream(ctx context.Context, filters ActivityFilters, batchSize int, fn func([]*models.ActivityLog) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	var (
		cursorAt time.Time
		cursorID int64
		first    = true
	)

	for {
		clause, args, paramIndex := filters.where(1)
		if !first {
			clause += fmt.Sprintf(` AND (created_at, id) < ($%d, $%d)`, paramIndex, paramIndex+1)
			args = append(args, cursorAt, cursorID)
			paramIndex += 2
		}

		query := `SELECT ` + activityColumns + ` FROM user_activity_logs WHERE 1=1` + clause +
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, paramIndex)
		args = append(args, batchSize)

		batch := make([]*models.ActivityLog, 0, batchSize)
		if err := r.db.SelectContext(ctx, &batch, query, args...); err != nil {
			return fmt.Errorf("failed to read activity batch: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}

		last := batch[len(batch)-1]
		cursorAt, cursorID, first = last.CreatedAt, last.ID, false
	}
}
