// tack_repository.go implements TackRepository for the sales routes of a circuit.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
)

// TackRepository handles tack database operations
type TackRepository struct {
	db     *sqlx.DB
	events lifecycle.Publisher
}

// NewTackRepository creates a new TackRepository. events may be nil.
func NewTackRepository(db *sqlx.DB, events lifecycle.Publisher) *TackRepository {
	return &TackRepository{db: db, events: events}
}

// Create inserts a tack and assigns its id and timestamps.
func (r *TackRepository) Create(ctx context.Context, t *models.Tack) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	query := `
		INSERT INTO tacks (circuit_id, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		t.CircuitID, t.Name, t.Active, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.CreatedEvent(t))
	return nil
}

// ListByCircuit returns the tacks of one circuit ordered by name.
func (r *TackRepository) ListByCircuit(ctx context.Context, circuitID int64) ([]*models.Tack, error) {
	tacks := make([]*models.Tack, 0)
	err := r.db.SelectContext(ctx, &tacks, `SELECT * FROM tacks WHERE circuit_id = $1 ORDER BY name`, circuitID)
	return tacks, err
}

// Update persists name, circuit and active flag. Returns ErrNotFound for an unknown id.
func (r *TackRepository) Update(ctx context.Context, t *models.Tack) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Tack
	err = tx.GetContext(ctx, &before, `SELECT * FROM tacks WHERE id = $1 FOR UPDATE`, t.ID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	t.CreatedAt = before.CreatedAt
	t.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE tacks SET circuit_id = $1, name = $2, active = $3, updated_at = $4 WHERE id = $5`,
		t.CircuitID, t.Name, t.Active, t.UpdatedAt, t.ID,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.UpdatedEvent(before.Attributes(), t))
	return nil
}

// Delete removes a tack. Returns ErrNotFound for an unknown id.
func (r *TackRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Tack
	err = tx.GetContext(ctx, &before, `SELECT * FROM tacks WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tacks WHERE id = $1`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.DeletedEvent(&before))
	return nil
}
