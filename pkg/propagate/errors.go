package propagate

import "fmt"

// ExternalError wraps a failure from the file-authorization service
// with the file and user it concerned.
type ExternalError struct {
	Username string
	Path     string
	Err      error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("file authorization update for user %s on %s: %v", e.Username, e.Path, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }
