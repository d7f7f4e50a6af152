// share_repository.go implements ShareRepository for monthly sales targets.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
)

// ShareRepository handles share (sales target) database operations
type ShareRepository struct {
	db     *sqlx.DB
	events lifecycle.Publisher
}

// NewShareRepository creates a new ShareRepository. events may be nil.
func NewShareRepository(db *sqlx.DB, events lifecycle.Publisher) *ShareRepository {
	return &ShareRepository{db: db, events: events}
}

// Create inserts a share and assigns its id and timestamps.
func (r *ShareRepository) Create(ctx context.Context, s *models.Share) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	query := `
		INSERT INTO shares (circuit_id, period, product, target, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		s.CircuitID, s.Period, s.Product, s.Target, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.CreatedEvent(s))
	return nil
}

// ListByPeriod returns every share of a period (YYYY-MM).
func (r *ShareRepository) ListByPeriod(ctx context.Context, period string) ([]*models.Share, error) {
	shares := make([]*models.Share, 0)
	err := r.db.SelectContext(ctx, &shares,
		`SELECT * FROM shares WHERE period = $1 ORDER BY circuit_id, product`, period)
	return shares, err
}

// Update persists the target and keys of s. Returns ErrNotFound for an unknown id.
func (r *ShareRepository) Update(ctx context.Context, s *models.Share) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Share
	err = tx.GetContext(ctx, &before, `SELECT * FROM shares WHERE id = $1 FOR UPDATE`, s.ID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.CreatedAt = before.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE shares SET circuit_id = $1, period = $2, product = $3, target = $4, updated_at = $5 WHERE id = $6`,
		s.CircuitID, s.Period, s.Product, s.Target, s.UpdatedAt, s.ID,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.UpdatedEvent(before.Attributes(), s))
	return nil
}

// Delete removes a share. Returns ErrNotFound for an unknown id.
func (r *ShareRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Share
	err = tx.GetContext(ctx, &before, `SELECT * FROM shares WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM shares WHERE id = $1`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.DeletedEvent(&before))
	return nil
}
