package tilecodec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"

	"fabula.engine/internal/sim/sceneerr"
)

// MaxStringLen is the largest string a record can carry (u16 length prefix).
const MaxStringLen = math.MaxUint16

// Writer appends big-endian fixed-width fields.
type Writer struct {
	buf bytes.Buffer
	tmp [4]byte
}

func NewWriter(sizeHint int) *Writer {
	w := &Writer{}
	w.buf.Grow(sizeHint)
	return w
}

func (w *Writer) Len() int      { return w.buf.Len() }
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) WriteInt32(v int32) {
	binary.BigEndian.PutUint32(w.tmp[:], uint32(v))
	w.buf.Write(w.tmp[:])
}

func (w *Writer) WriteFloat32(v float32) {
	binary.BigEndian.PutUint32(w.tmp[:], math.Float32bits(v))
	w.buf.Write(w.tmp[:])
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

// WriteString writes a u16 byte length followed by the UTF-8 bytes.
func (w *Writer) WriteString(s string) error {
	if len(s) > MaxStringLen {
		return sceneerr.Precondition("string of %d bytes exceeds %d", len(s), MaxStringLen)
	}
	binary.BigEndian.PutUint16(w.tmp[:2], uint16(len(s)))
	w.buf.Write(w.tmp[:2])
	w.buf.WriteString(s)
	return nil
}

// Reader consumes fields written by Writer. Every short read is reported as
// decode corruption with the offending offset.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Offset() int    { return r.off }
func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) next(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, sceneerr.Corrupt(fmt.Sprintf("tile stream at byte %d", r.off), io.ErrUnexpectedEOF)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.next(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *Reader) ReadString() (string, error) {
	at := r.off
	b, err := r.next(2)
	if err != nil {
		return "", err
	}
	n := int(binary.BigEndian.Uint16(b))
	if b, err = r.next(n); err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", sceneerr.Corrupt(fmt.Sprintf("string at byte %d", at), errors.New("invalid utf-8"))
	}
	return string(b), nil
}
