// Package models - sales.go holds helpers shared by the commercial-structure entities
// (circuits, tacks, sellers, shares) whose mutations feed the activity trail.
package models

// deref flattens an optional column into a plain attribute value.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
