// Package encoding turns binary payloads into text that can sit inside a
// structured document and back.
package encoding

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"fabula.engine/internal/sim/sceneerr"
)

// inflateBufferSize is the chunk size decompression reads with.
const inflateBufferSize = 1024

// Sizes reports the payload size before and after compression.
type Sizes struct {
	Uncompressed int `json:"uncompressed"`
	Compressed   int `json:"compressed"`
}

// Ratio is Compressed/Uncompressed, or 0 for an empty payload.
func (s Sizes) Ratio() float64 {
	if s.Uncompressed == 0 {
		return 0
	}
	return float64(s.Compressed) / float64(s.Uncompressed)
}

// Pack deflates raw at maximum compression (zlib framing) and returns the
// standard base64 encoding of the result.
func Pack(raw []byte) (string, Sizes, error) {
	sizes := Sizes{Uncompressed: len(raw)}

	var buf bytes.Buffer
	buf.Grow(len(raw)/2 + 64)
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", sizes, fmt.Errorf("deflate init: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		_ = zw.Close()
		return "", sizes, fmt.Errorf("deflate write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", sizes, fmt.Errorf("deflate close: %w", err)
	}
	sizes.Compressed = buf.Len()
	return base64.StdEncoding.EncodeToString(buf.Bytes()), sizes, nil
}

// Unpack reverses Pack. Malformed base64 and truncated or corrupt compressed
// data are reported as sceneerr.ErrDecodeCorruption.
func Unpack(text string) ([]byte, Sizes, error) {
	var sizes Sizes
	compressed, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, sizes, sceneerr.Corrupt("base64", err)
	}
	sizes.Compressed = len(compressed)

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, sizes, sceneerr.Corrupt("inflate header", err)
	}
	defer zr.Close()

	var out bytes.Buffer
	out.Grow(len(compressed) * 4)
	chunk := make([]byte, inflateBufferSize)
	for {
		n, err := zr.Read(chunk)
		out.Write(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, sizes, sceneerr.Corrupt("inflate", err)
		}
	}
	sizes.Uncompressed = out.Len()
	return out.Bytes(), sizes, nil
}
