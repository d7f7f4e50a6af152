// circuit_repository.go implements CircuitRepository. Every committed mutation is published
// on the lifecycle bus so observers can record it in the activity trail.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
)

// CircuitRepository handles circuit database operations
type CircuitRepository struct {
	db     *sqlx.DB
	events lifecycle.Publisher
}

// NewCircuitRepository creates a new CircuitRepository. events may be nil.
func NewCircuitRepository(db *sqlx.DB, events lifecycle.Publisher) *CircuitRepository {
	return &CircuitRepository{db: db, events: events}
}

// Create inserts a circuit and assigns its id and timestamps.
func (r *CircuitRepository) Create(ctx context.Context, c *models.Circuit) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	query := `
		INSERT INTO circuits (zonal_id, code, name, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ZonalID, c.Code, c.Name, c.Address, c.Active, c.CreatedAt, c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.CreatedEvent(c))
	return nil
}

// Get retrieves a circuit by id; nil when missing.
func (r *CircuitRepository) Get(ctx context.Context, id int64) (*models.Circuit, error) {
	var c models.Circuit
	err := r.db.GetContext(ctx, &c, `SELECT * FROM circuits WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns every circuit ordered by code.
func (r *CircuitRepository) List(ctx context.Context) ([]*models.Circuit, error) {
	circuits := make([]*models.Circuit, 0)
	err := r.db.SelectContext(ctx, &circuits, `SELECT * FROM circuits ORDER BY code`)
	return circuits, err
}

// Update persists every mutable column of c. Returns ErrNotFound for an unknown id.
func (r *CircuitRepository) Update(ctx context.Context, c *models.Circuit) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Circuit
	err = tx.GetContext(ctx, &before, `SELECT * FROM circuits WHERE id = $1 FOR UPDATE`, c.ID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	c.CreatedAt = before.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE circuits SET zonal_id = $1, code = $2, name = $3, address = $4, active = $5, updated_at = $6
		WHERE id = $7`,
		c.ZonalID, c.Code, c.Name, c.Address, c.Active, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.UpdatedEvent(before.Attributes(), c))
	return nil
}

// Delete removes a circuit. Returns ErrNotFound for an unknown id.
func (r *CircuitRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Circuit
	err = tx.GetContext(ctx, &before, `SELECT * FROM circuits WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM circuits WHERE id = $1`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.DeletedEvent(&before))
	return nil
}

// publish hands a committed mutation to the bus, if one is configured.
func publish(ctx context.Context, events lifecycle.Publisher, ev lifecycle.Event) {
	if events == nil {
		return
	}
	events.Publish(ctx, ev)
}
