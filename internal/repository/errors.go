package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist. Callers match
// with errors.Is after the repositories wrap it with entity context.
var ErrNotFound = errors.New("not found")
