package renderer

import (
	"errors"
	"fmt"
)

// ErrNoStencil is returned by backends asked for stencil state without a
// stencil buffer.
var ErrNoStencil = errors.New("renderer: no stencil buffer")

// UnknownValueError reports a name that does not map to an enum value.
type UnknownValueError struct {
	Kind  string
	Value string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Value)
}
