package access

import "errors"

var (
	// ErrPermissionDenied is returned when the principal lacks the
	// required permission level. Maps to 403 at the route boundary.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnauthorized is returned when no valid principal is present
	// where one is mandatory. Maps to 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadRequest is returned when a mutating operation is missing a
	// required input. Maps to 400.
	ErrBadRequest = errors.New("bad request")
)
