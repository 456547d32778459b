package catalog

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the catalog service
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog error (status %d, type %s)", e.StatusCode, e.Type)
	}
	return fmt.Sprintf("catalog error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the catalog
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsForbidden reports whether err is a 403 from the catalog
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

// IsConflict reports whether err is a 409 from the catalog
func IsConflict(err error) bool {
	return statusOf(err) == http.StatusConflict
}
