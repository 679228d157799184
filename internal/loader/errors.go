package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed reports a statement the parser cannot make sense of.
	ErrMalformed = errors.New("malformed statement")
	// ErrUnresolvedMaterial reports a usemtl naming a material that no
	// library defines.
	ErrUnresolvedMaterial = errors.New("unresolved material")
)

// LoadError reports an unreadable or malformed scene file. Line is 0 when
// the failure is not tied to a line.
type LoadError struct {
	Path string
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
