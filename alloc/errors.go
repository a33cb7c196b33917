package alloc

import (
	"errors"
	"fmt"
)

// ErrAlloc matches every *AllocError via errors.Is.
var ErrAlloc = errors.New("alloc: allocation failed")

// Kind classifies an allocation failure.
type Kind int

const (
	KindInvalidLayout Kind = iota
	KindAlignTooLarge
	KindOutOfMemory
	KindRelocationRequired
	KindInvalidResize
)

func (k Kind) String() string {
	switch k {
	case KindInvalidLayout:
		return "invalid layout"
	case KindAlignTooLarge:
		return "alignment too large"
	case KindOutOfMemory:
		return "out of memory"
	case KindRelocationRequired:
		return "in-place resize not possible"
	case KindInvalidResize:
		return "invalid resize"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AllocError is the error returned by every allocator operation.
type AllocError struct {
	Op      string
	Layout  Layout
	NewSize uintptr
	Kind    Kind
	Err     error
}

func (e *AllocError) Error() string {
	msg := fmt.Sprintf("alloc: %s %s: %s", e.Op, e.Layout, e.Kind)
	if e.NewSize != 0 {
		msg = fmt.Sprintf("alloc: %s %s to %d bytes: %s", e.Op, e.Layout, e.NewSize, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AllocError) Unwrap() error { return e.Err }

func (e *AllocError) Is(target error) bool { return target == ErrAlloc }

var (
	errNoInPlace = errors.New("platform cannot resize without relocating")
	errNoResize  = errors.New("platform has no native resize")
)
