package auth

import (
	"fmt"
	"slices"
)

// Scope is a permission carried in a portal token.
type Scope string

const (
	ScopeActivityWrite Scope = "activity:write"
	ScopeActivityRead  Scope = "activity:read"
	ScopeCatalogWrite  Scope = "catalog:write"

	// ScopeAdmin satisfies every scope check.
	ScopeAdmin Scope = "admin"
)

var scopeDescriptions = map[Scope]string{
	ScopeActivityWrite: "report client-side activity",
	ScopeActivityRead:  "list, export and archive the activity trail",
	ScopeCatalogWrite:  "manage circuits, tacks, sellers and shares",
	ScopeAdmin:         "everything",
}

// AllScopes returns the known scopes in name order.
func AllScopes() []Scope {
	out := make([]Scope, 0, len(scopeDescriptions))
	for s := range scopeDescriptions {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Description returns a short human description, or "" for unknown scopes.
func (s Scope) Description() string {
	return scopeDescriptions[s]
}

// ValidateScopes rejects any name that is not a known scope.
func ValidateScopes(scopes []string) error {
	for _, s := range scopes {
		if _, ok := scopeDescriptions[Scope(s)]; !ok {
			return fmt.Errorf("invalid scope: %q", s)
		}
	}
	return nil
}

// HasScope reports whether granted includes required or admin.
func HasScope(granted []string, required Scope) bool {
	return slices.Contains(granted, string(required)) || slices.Contains(granted, string(ScopeAdmin))
}

// HasAnyScope reports whether granted satisfies at least one of required.
func HasAnyScope(granted []string, required []Scope) bool {
	return slices.ContainsFunc(required, func(s Scope) bool { return HasScope(granted, s) })
}

// DefaultScopes is what a token without a scopes claim gets: every portal user may
// report their own activity.
func DefaultScopes() []string {
	return []string{string(ScopeActivityWrite)}
}
