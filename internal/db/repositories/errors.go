package repositories

import "errors"

// ErrNotFound is returned by mutations addressed to a row that does not exist.
var ErrNotFound = errors.New("record not found")
