package broker

import (
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned for calls pending or queued when the broker is
// stopped, and for submissions after Stop.
var ErrClosed = errors.New("command broker is closed")

// TimeoutError reports that a command's deadline elapsed before a complete
// response arrived. The child-side operation is not aborted.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
}

// CrashError reports that the scripting process exited while a command was
// pending or queued behind one.
type CrashError struct {
	Command string
	Err     error
}

func (e *CrashError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("scripting process exited while %q was pending", e.Command)
	}
	return fmt.Sprintf("scripting process exited while %q was pending: %v", e.Command, e.Err)
}

func (e *CrashError) Unwrap() error {
	return e.Err
}
