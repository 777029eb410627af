package publish

import (
	"errors"
	"fmt"
)

// AuthMessage is the user-facing message for every authentication failure.
const AuthMessage = "请先登录今日头条账户"

// ErrNotAuthenticated marks a missing or rejected session.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrInvalidRequest marks a request rejected before any browser work.
var ErrInvalidRequest = errors.New("invalid request")

// AuthError reports that the platform does not consider the session valid.
type AuthError struct {
	// Reason says how the failure was detected.
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return AuthMessage
	}
	return fmt.Sprintf("%s (%s)", AuthMessage, e.Reason)
}

func (e *AuthError) Unwrap() error { return ErrNotAuthenticated }

// StepError reports a mandatory workflow step that failed.
type StepError struct {
	Step     string
	Selector string
	// Screenshot is the artifact captured when the step failed, if any.
	Screenshot string
	Err        error
}

func (e *StepError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("step %s failed (selector %q): %v", e.Step, e.Selector, e.Err)
	}
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
