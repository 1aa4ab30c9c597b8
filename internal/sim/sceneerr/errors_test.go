package sceneerr

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestVersionMismatchMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", &VersionMismatchError{Got: 2, Want: 3})
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}
	var vm *VersionMismatchError
	if !errors.As(err, &vm) || vm.Got != 2 || vm.Want != 3 {
		t.Fatalf("errors.As: %+v", vm)
	}
	if Code(err) != CodeVersionMismatch {
		t.Fatalf("code=%s", Code(err))
	}
}

func TestCorruptKeepsCause(t *testing.T) {
	err := Corrupt("inflate", io.ErrUnexpectedEOF)
	if !errors.Is(err, ErrDecodeCorruption) {
		t.Fatalf("missing kind: %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("missing cause: %v", err)
	}
	if !IsCode(err, CodeDecodeCorruption) {
		t.Fatalf("code=%s", Code(err))
	}
}

func TestCodes(t *testing.T) {
	if Code(nil) != "" {
		t.Fatalf("nil code")
	}
	if Code(Unresolved("tileset", "x")) != CodeUnresolvedReference {
		t.Fatalf("unresolved code")
	}
	if Code(Precondition("tile %d,%d", 1, 2)) != CodePrecondition {
		t.Fatalf("precondition code")
	}
	if Code(errors.New("boom")) != CodeInternal {
		t.Fatalf("internal code")
	}
}
