package frame

import (
	"context"
	"fmt"
)

// Source produces decoded frames by id. Implementations may block on file
// or network I/O; callers cancel through the context.
type Source interface {
	Fetch(ctx context.Context, id string) (*Frame, error)
}

// DecodeError reports a frame that could not be decoded. It is
// recoverable: the render pipeline shows a placeholder and the caller may
// retry.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
