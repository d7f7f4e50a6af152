// Package models - circuit.go defines Circuit, a sales circuit within a zonal.
package models

import "time"

// Circuit is a sales circuit grouping tacks and sellers
type Circuit struct {
	ID        int64     `json:"id" db:"id"`
	ZonalID   *int64    `json:"zonal_id,omitempty" db:"zonal_id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	Address   *string   `json:"address,omitempty" db:"address"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (c *Circuit) EntityType() string { return "Circuit" }
func (c *Circuit) EntityID() int64    { return c.ID }

// Attributes returns the persisted columns keyed by column name.
func (c *Circuit) Attributes() Metadata {
	return Metadata{
		"id":         c.ID,
		"zonal_id":   deref(c.ZonalID),
		"code":       c.Code,
		"name":       c.Name,
		"address":    deref(c.Address),
		"active":     c.Active,
		"created_at": c.CreatedAt,
		"updated_at": c.UpdatedAt,
	}
}
