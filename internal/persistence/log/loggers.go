package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"fabula.engine/internal/persistence/persister"
)

// JSONLZstdWriter appends JSON lines to zstd files rotated per UTC day:
// <baseDir>/<prefix>-YYYY-MM-DD.jsonl.zst. Each reopen starts a new zstd
// frame in the same file.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	day := w.now().UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForDay(day)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curDay = day
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var errs []error
	if w.w != nil {
		errs = append(errs, w.w.Flush())
	}
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		errs = append(errs, w.f.Close())
		w.f = nil
	}
	w.w = nil
	w.curDay = ""
	return errors.Join(errs...)
}

func (w *JSONLZstdWriter) pathForDay(day string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
}

// OpLogger journals scene saves and loads under <dataDir>/journal.
type OpLogger struct{ w *JSONLZstdWriter }

func NewOpLogger(dataDir string) *OpLogger {
	return &OpLogger{w: NewJSONLZstdWriter(JournalDir(dataDir), "ops")}
}

func JournalDir(dataDir string) string { return filepath.Join(dataDir, "journal") }

func (l *OpLogger) WriteOp(v persister.OpEntry) error { return l.w.Write(v) }
func (l *OpLogger) Close() error                      { return l.w.Close() }

// ReadOps returns every entry in the journal files under dir, oldest file
// first. A missing dir yields no entries.
func ReadOps(dir string) ([]persister.OpEntry, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "ops-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []persister.OpEntry
	for _, p := range paths {
		if err := readOpsFile(p, func(e persister.OpEntry) { out = append(out, e) }); err != nil {
			return out, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return out, nil
}

func readOpsFile(path string, each func(persister.OpEntry)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	jd := json.NewDecoder(dec)
	for {
		var e persister.OpEntry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		each(e)
	}
}
