package log

import (
	"testing"
	"time"

	"fabula.engine/internal/persistence/persister"
)

func TestOpLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewOpLogger(dir)
	if err := l.WriteOp(persister.OpEntry{Op: "save", Name: "meadow", Columns: 2, Rows: 2}); err != nil {
		t.Fatalf("WriteOp: %v", err)
	}
	if err := l.WriteOp(persister.OpEntry{Op: "load", Name: "meadow", Code: "E_DECODE_CORRUPTION"}); err != nil {
		t.Fatalf("WriteOp: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// A reopened writer appends a second frame to the same day file.
	l = NewOpLogger(dir)
	if err := l.WriteOp(persister.OpEntry{Op: "meta", Name: "cave"}); err != nil {
		t.Fatalf("WriteOp: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ops, err := ReadOps(JournalDir(dir))
	if err != nil {
		t.Fatalf("ReadOps: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("ops=%d", len(ops))
	}
	if ops[0].Op != "save" || ops[0].Columns != 2 || ops[1].Code != "E_DECODE_CORRUPTION" || ops[2].Name != "cave" {
		t.Fatalf("unexpected ops: %+v", ops)
	}
}

func TestJSONLZstdWriter_RotatesPerDay(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONLZstdWriter(dir, "ops")
	day := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	if err := w.Write(persister.OpEntry{Op: "save"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	day = day.Add(2 * time.Hour)
	if err := w.Write(persister.OpEntry{Op: "load"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ops, err := ReadOps(dir)
	if err != nil {
		t.Fatalf("ReadOps: %v", err)
	}
	if len(ops) != 2 || ops[0].Op != "save" || ops[1].Op != "load" {
		t.Fatalf("unexpected ops: %+v", ops)
	}
}

func TestReadOps_MissingDir(t *testing.T) {
	ops, err := ReadOps(t.TempDir() + "/nope")
	if err != nil || len(ops) != 0 {
		t.Fatalf("ops=%v err=%v", ops, err)
	}
}
