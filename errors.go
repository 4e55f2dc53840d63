package arbor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is matched by every *UnsupportedError.
	ErrUnsupported = errors.New("arbor: operation not supported by this mounting architecture")

	// ErrRunnerClosed is returned when a task is submitted after the task
	// runner started shutting down.
	ErrRunnerClosed = errors.New("arbor: task runner is shut down")

	// ErrSurfaceClosed is returned when work is submitted to a stopped surface.
	ErrSurfaceClosed = errors.New("arbor: surface is stopped")

	// ErrTaskPanicked is wrapped by the error reported for a task that
	// panicked on a runner thread.
	ErrTaskPanicked = errors.New("arbor: task panicked")

	// ErrUnknownTag is returned when a tag does not name a live node.
	ErrUnknownTag = errors.New("arbor: unknown tag")
)

// UnsupportedError reports a call that assumes an execution mode this
// mounting architecture does not have.
type UnsupportedError struct {
	Op string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("arbor: %s is not supported by this mounting architecture", e.Op)
}

// Is makes errors.Is(err, ErrUnsupported) succeed.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}
