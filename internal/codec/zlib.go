// Package codec compresses and decompresses object payloads using the
// zlib wire format, so stores produced by this module interoperate with
// anything else reading standard zlib streams.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Deflate zlib-compresses b at the library's default compression level.
func Deflate(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(b); err != nil {
		w.Close()
		return nil, fmt.Errorf("codec: compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("codec: finalizing compression: %w", err)
	}
	return buf.Bytes(), nil
}

// Inflate decompresses a zlib stream produced by Deflate (or any
// standard zlib writer). Malformed input is reported as ErrCorrupt.
func Inflate(b []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: opening zlib stream: %v", ErrCorrupt, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading zlib stream: %v", ErrCorrupt, err)
	}
	return out, nil
}
