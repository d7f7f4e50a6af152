// Package models - tack.go defines Tack, a sales route inside a circuit.
package models

import "time"

// Tack is a sales route belonging to a circuit
type Tack struct {
	ID        int64     `json:"id" db:"id"`
	CircuitID int64     `json:"circuit_id" db:"circuit_id"`
	Name      string    `json:"name" db:"name"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (t *Tack) EntityType() string { return "Tack" }
func (t *Tack) EntityID() int64    { return t.ID }

func (t *Tack) Attributes() Metadata {
	return Metadata{
		"id":         t.ID,
		"circuit_id": t.CircuitID,
		"name":       t.Name,
		"active":     t.Active,
		"created_at": t.CreatedAt,
		"updated_at": t.UpdatedAt,
	}
}
