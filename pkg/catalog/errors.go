package catalog

import "errors"

// ErrNotFound is returned when a record id does not exist. Callers map it
// to 404 semantics at the route boundary.
var ErrNotFound = errors.New("record not found")
