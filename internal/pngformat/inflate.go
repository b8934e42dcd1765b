package pngformat

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ErrInflateFailure wraps any error the zlib reader itself reports,
// covering both a malformed header and a truncated/corrupt stream.
var ErrInflateFailure = errors.New("pngformat: zlib inflate failure")

// Inflate decompresses a chunk's concatenated zlib-wrapped payload (the
// IDAT or fdAT stream) into raw filtered scanline bytes.
func Inflate(compressed []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib header: %v", ErrInflateFailure, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: zlib inflate: %v", ErrInflateFailure, err)
	}
	return out, nil
}
