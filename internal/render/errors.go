package render

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a render job failed, so the API can map
// failures to meaningful responses and operators can tell a bad source
// URL from a broken ffmpeg install.
type FailureKind string

const (
	KindSourceUnavailable FailureKind = "source_unavailable"
	KindRenderTool        FailureKind = "render_tool"
	KindIO                FailureKind = "io"
)

// ErrQueueFull is returned by Submit when the render queue is at capacity.
var ErrQueueFull = errors.New("render queue is full")

// Error wraps a render failure with its classification.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render failed (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind FailureKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
