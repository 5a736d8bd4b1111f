package client

import (
	"errors"
	"fmt"
)

// APIError is a terminal upstream error carrying the HTTP status and the
// envelope's error message when one was present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d", e.Status)
}

// isNotFound reports whether err is an upstream 404. Get-style operations
// translate it into a nil result instead of surfacing it.
func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
