package square

import (
	"errors"
	"fmt"
)

// Sentinel errors for the conditions the reconciler branches on. Wrapped by
// [*APIError] so callers test with errors.Is.
var (
	// ErrNotFound means the remote id no longer resolves to an object.
	ErrNotFound = errors.New("catalog object not found")

	// ErrVersionConflict means an upsert carried a stale version.
	ErrVersionConflict = errors.New("catalog object version conflict")

	// ErrMalformed means a response had no recognizable object or id.
	ErrMalformed = errors.New("malformed catalog response")
)

// Remote error codes that map to sentinels.
const (
	codeNotFound        = "NOT_FOUND"
	codeVersionMismatch = "VERSION_MISMATCH"
)

// APIError is a structured error returned by the remote catalog service.
type APIError struct {
	Status int    // HTTP status
	Code   string // remote error code, e.g. "VERSION_MISMATCH"
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API error %d %s: %s", e.Status, e.Code, e.Detail)
}

// Unwrap maps well-known remote codes onto the package sentinels so that
// errors.Is(err, ErrNotFound) works through an APIError.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case codeNotFound:
		return ErrNotFound
	case codeVersionMismatch:
		return ErrVersionConflict
	}
	return nil
}

// isTransient reports whether err is worth retrying within one call: network
// failures and 5xx responses, but never not-found, version conflicts, or other
// remote rejections.
func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500
	}
	if errors.Is(err, ErrMalformed) {
		return false
	}
	return true
}
