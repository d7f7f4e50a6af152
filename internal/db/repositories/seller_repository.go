// seller_repository.go implements SellerRepository for field salespeople.
package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
)

// SellerRepository handles seller database operations
type SellerRepository struct {
	db     *sqlx.DB
	events lifecycle.Publisher
}

// NewSellerRepository creates a new SellerRepository. events may be nil.
func NewSellerRepository(db *sqlx.DB, events lifecycle.Publisher) *SellerRepository {
	return &SellerRepository{db: db, events: events}
}

// Create inserts a seller and assigns its id and timestamps.
func (r *SellerRepository) Create(ctx context.Context, s *models.Seller) error {
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	query := `
		INSERT INTO sellers (circuit_id, dni, name, phone, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	if err := r.db.QueryRowContext(ctx, query,
		s.CircuitID, s.DNI, s.Name, s.Phone, s.Active, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.CreatedEvent(s))
	return nil
}

// GetByDNI looks a seller up by national id; nil when missing.
func (r *SellerRepository) GetByDNI(ctx context.Context, dni string) (*models.Seller, error) {
	var s models.Seller
	err := r.db.GetContext(ctx, &s, `SELECT * FROM sellers WHERE dni = $1`, dni)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update persists every mutable column of s. Returns ErrNotFound for an unknown id.
func (r *SellerRepository) Update(ctx context.Context, s *models.Seller) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Seller
	err = tx.GetContext(ctx, &before, `SELECT * FROM sellers WHERE id = $1 FOR UPDATE`, s.ID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.CreatedAt = before.CreatedAt
	s.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		UPDATE sellers SET circuit_id = $1, dni = $2, name = $3, phone = $4, active = $5, updated_at = $6
		WHERE id = $7`,
		s.CircuitID, s.DNI, s.Name, s.Phone, s.Active, s.UpdatedAt, s.ID,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.UpdatedEvent(before.Attributes(), s))
	return nil
}

// Delete removes a seller. Returns ErrNotFound for an unknown id.
func (r *SellerRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Seller
	err = tx.GetContext(ctx, &before, `SELECT * FROM sellers WHERE id = $1 FOR UPDATE`, id)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sellers WHERE id = $1`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	publish(ctx, r.events, lifecycle.DeletedEvent(&before))
	return nil
}
