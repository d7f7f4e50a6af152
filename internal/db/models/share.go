// Package models - share.go defines Share, a monthly sales target for a circuit and product.
package models

import "time"

// Share is the sales target (cuota) of a circuit for one product in one period (YYYY-MM)
type Share struct {
	ID        int64     `json:"id" db:"id"`
	CircuitID int64     `json:"circuit_id" db:"circuit_id"`
	Period    string    `json:"period" db:"period"`
	Product   string    `json:"product" db:"product"`
	Target    float64   `json:"target" db:"target"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Share) EntityType() string { return "Share" }
func (s *Share) EntityID() int64    { return s.ID }

func (s *Share) Attributes() Metadata {
	return Metadata{
		"id":         s.ID,
		"circuit_id": s.CircuitID,
		"period":     s.Period,
		"product":    s.Product,
		"target":     s.Target,
		"created_at": s.CreatedAt,
		"updated_at": s.UpdatedAt,
	}
}
