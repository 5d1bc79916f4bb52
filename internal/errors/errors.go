package errors

import (
	"errors"
	"fmt"
)

// Common error types shared across the launcher auth pipeline and the
// provisioning queue.
var (
	// Configuration errors
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Flow errors
	ErrStateMismatch = errors.New("state mismatch")
	ErrNonceMismatch = errors.New("nonce mismatch")
	ErrUserCancelled = errors.New("user cancelled")

	// Provider response errors
	ErrMissingAccessToken = errors.New("token response missing access_token")
	ErrMissingSessionID   = errors.New("session response missing sessionId")
)

// maxBodySnippet bounds the response body carried inside a ProtocolError so
// diagnostics never drag a whole HTML error page along with them.
const maxBodySnippet = 500

// ProtocolError reports an unexpected provider response: a non-2xx status or
// a response missing a required field. It carries the HTTP status and a
// truncated body snippet for diagnostics.
type ProtocolError struct {
	Op     string // operation that failed, e.g. "provision.ListCharacters"
	Status int    // HTTP status code, 0 if the failure was not status related
	Body   string // truncated response body
}

func (e *ProtocolError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: unexpected provider response: %s", e.Op, e.Body)
}

// NewProtocolError builds a ProtocolError, truncating the body to a bounded
// snippet.
func NewProtocolError(op string, status int, body []byte) *ProtocolError {
	snippet := string(body)
	if len(snippet) > maxBodySnippet {
		snippet = snippet[:maxBodySnippet]
	}
	return &ProtocolError{Op: op, Status: status, Body: snippet}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
