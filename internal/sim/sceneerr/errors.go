// Package sceneerr defines the failure kinds shared by the scene codecs and
// the persister. Every load or save failure wraps exactly one of them.
package sceneerr

import (
	"errors"
	"fmt"
)

var (
	ErrVersionMismatch     = errors.New("scene version mismatch")
	ErrDecodeCorruption    = errors.New("scene data corrupt")
	ErrUnresolvedReference = errors.New("unresolved scene reference")
	ErrPrecondition        = errors.New("scene precondition violated")
)

const (
	CodeVersionMismatch     = "E_VERSION_MISMATCH"
	CodeDecodeCorruption    = "E_DECODE_CORRUPTION"
	CodeUnresolvedReference = "E_UNRESOLVED_REFERENCE"
	CodePrecondition        = "E_PRECONDITION"
	CodeInternal            = "E_INTERNAL"
)

// VersionMismatchError reports a scene whose declared version differs from
// the one this build reads.
type VersionMismatchError struct {
	Got  int
	Want int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("scene is version %d but version %d is required", e.Got, e.Want)
}

func (e *VersionMismatchError) Is(target error) bool { return target == ErrVersionMismatch }

// Corrupt wraps err as a decode corruption of the named stage.
func Corrupt(stage string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", stage, ErrDecodeCorruption)
	}
	return fmt.Errorf("%s: %w: %w", stage, ErrDecodeCorruption, err)
}

// Unresolved reports a name missing from the named catalog.
func Unresolved(kind, name string) error {
	return fmt.Errorf("%s %q: %w", kind, name, ErrUnresolvedReference)
}

// Precondition reports a save-side invariant the caller failed to establish.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrPrecondition)
}

// Code maps err to its machine-readable code. Nil maps to "".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrVersionMismatch):
		return CodeVersionMismatch
	case errors.Is(err, ErrDecodeCorruption):
		return CodeDecodeCorruption
	case errors.Is(err, ErrUnresolvedReference):
		return CodeUnresolvedReference
	case errors.Is(err, ErrPrecondition):
		return CodePrecondition
	default:
		return CodeInternal
	}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return Code(err) == code
}
