// Package models - seller.go defines Seller, a field salesperson.
package models

import "time"

// Seller is a field salesperson, optionally assigned to a circuit
type Seller struct {
	ID        int64     `json:"id" db:"id"`
	CircuitID *int64    `json:"circuit_id,omitempty" db:"circuit_id"`
	DNI       string    `json:"dni" db:"dni"`
	Name      string    `json:"name" db:"name"`
	Phone     *string   `json:"phone,omitempty" db:"phone"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Seller) EntityType() string { return "Seller" }
func (s *Seller) EntityID() int64    { return s.ID }

func (s *Seller) Attributes() Metadata {
	return Metadata{
		"id":         s.ID,
		"circuit_id": deref(s.CircuitID),
		"dni":        s.DNI,
		"name":       s.Name,
		"phone":      deref(s.Phone),
		"active":     s.Active,
		"created_at": s.CreatedAt,
		"updated_at": s.UpdatedAt,
	}
}
