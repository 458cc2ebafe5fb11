package client

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrSessionClosed     = errors.New("Session is already closed")
	ErrNotAuthenticated  = errors.New("Server requires authentication before accepting commands")
	ErrDeauthInvalidated = errors.New("Server reported that authentication is no longer valid")
	ErrEmptyCommand      = errors.New("Command must not be empty")
	ErrForbiddenInput    = errors.New("Input must not contain CR, LF or NUL characters")
	ErrPeerClosed        = errors.New("Server closed the connection unexpectedly")
)

// TimeoutError reports that a single socket operation exceeded its deadline.
// The session should be treated as tainted afterwards; a partial write or a
// half-consumed frame may have left the protocol state desynchronized.
type TimeoutError struct {
	Op    string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Limit)
}

// Timeout satisfies the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// ProtocolError reports that the server sent data that does not conform to
// the expected grammar or frame shape at a point where no recovery is
// defined. It is always fatal to the current session.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("Protocol violation: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func violation(err error) error {
	return &ProtocolError{Err: err}
}

func violationf(format string, args ...interface{}) error {
	return &ProtocolError{Err: fmt.Errorf(format, args...)}
}

// IsProtocolViolation reports whether err belongs to the fatal
// protocol-violation category.
func IsProtocolViolation(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
