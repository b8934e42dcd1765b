// Package gifimage decodes a single GIF image descriptor's LZW-compressed
// pixel data into a flat, row-major palette-index buffer, then resolves
// that buffer against a color table into RGBA bytes.
package gifimage

import (
	"errors"
	"fmt"

	"github.com/deepteams/imaganim/internal/bitio"
	"github.com/deepteams/imaganim/internal/lzw"
)

var (
	// ErrInvalidEncoding covers any LZW stream that cannot be decoded to
	// completion because it violates the algorithm's own constraints: a
	// code referencing an unassigned table entry other than the KwKwK
	// case, a missing Clear at dictionary saturation, or a stream that
	// ends before the pixel buffer is full.
	ErrInvalidEncoding = errors.New("gifimage: invalid LZW encoding")
)

// Decoder decodes the LZW substream for one image of known pixel
// dimensions.
type Decoder struct {
	Width, Height int
	Interlaced    bool
}

// NewDecoder builds a Decoder for an image descriptor of the given
// dimensions.
func NewDecoder(width, height int, interlaced bool) *Decoder {
	return &Decoder{Width: width, Height: height, Interlaced: interlaced}
}

// interlacePasses gives, for each of GIF's 4 interlace passes, the
// starting row and the row stride.
var interlacePasses = [4]struct{ start, stride int }{
	{0, 8},
	{4, 8},
	{2, 4},
	{1, 2},
}

// Decode decompresses subBlocks (the concatenated, length-byte-stripped
// image data sub-blocks) into a row-major palette-index buffer of size
// Width*Height, deinterlacing on the fly if Interlaced is set.
func (d *Decoder) Decode(minCodeSize int, subBlocks []byte) ([]byte, error) {
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("gifimage: invalid dimensions %dx%d", d.Width, d.Height)
	}
	dict, err := lzw.New(minCodeSize)
	if err != nil {
		return nil, err
	}
	out := make([]byte, d.Width*d.Height)
	br := bitio.NewCodeReader(subBlocks)

	write := d.sequentialWriter(out)
	if d.Interlaced {
		write = d.interlacedWriter(out)
	}

	var prior []byte
	sawFirstCode := true
	written := 0
	total := d.Width * d.Height

	for written < total {
		code, ok := br.ReadCode(dict.CodeWidth())
		if !ok {
			// A stream that runs dry before filling the canvas is corrupt,
			// unless the canvas happened to be exactly filled already.
			return nil, fmt.Errorf("%w: stream ended with %d of %d pixels written",
				ErrInvalidEncoding, written, total)
		}

		switch {
		case code == dict.ClearCode():
			dict.Reset()
			prior = nil
			sawFirstCode = true
			continue
		case code == dict.EndCode():
			if written < total {
				return nil, fmt.Errorf("%w: end code at %d of %d pixels", ErrInvalidEncoding, written, total)
			}
			return out, nil
		}
		if dict.IsSaturated() {
			return nil, fmt.Errorf("%w: code %d at dictionary saturation where a Clear is required",
				ErrInvalidEncoding, code)
		}

		var entry []byte
		if sawFirstCode {
			// Tolerate encoders that omit the leading explicit Clear: the
			// first code is always a literal root code regardless.
			e, ok := dict.Lookup(code)
			if !ok {
				return nil, fmt.Errorf("%w: first code %d is not a root code", ErrInvalidEncoding, code)
			}
			entry = e
			sawFirstCode = false
		} else if e, ok := dict.Lookup(code); ok {
			entry = e
			if !dict.IsSaturated() {
				dict.Add(prior, e[0])
			}
		} else if int(code) == int(dict.NextCode()) {
			// KwKwK: code not yet assigned, build prior+prior[0] and use it
			// both as output and as the new table entry.
			entry = append(append([]byte{}, prior...), prior[0])
			if !dict.IsSaturated() {
				dict.Add(prior, prior[0])
			}
		} else {
			return nil, fmt.Errorf("%w: code %d unassigned and not next-in-sequence", ErrInvalidEncoding, code)
		}

		n := written + len(entry)
		if n > total {
			entry = entry[:total-written]
			n = total
		}
		write(written, entry)
		written = n
		prior = entry
	}
	return out, nil
}

func (d *Decoder) sequentialWriter(out []byte) func(offset int, entry []byte) {
	return func(offset int, entry []byte) {
		copy(out[offset:], entry)
	}
}

// interlacedWriter returns a writer that scatters a logically sequential
// pixel stream into GIF's 4-pass interlace order (rows 0,4,2,1 with
// strides 8,8,4,2) rather than row-major order.
func (d *Decoder) interlacedWriter(out []byte) func(offset int, entry []byte) {
	row, col, pass := 0, 0, 0
	row = interlacePasses[0].start

	advance := func() {
		col++
		if col >= d.Width {
			col = 0
			row += interlacePasses[pass].stride
			for row >= d.Height && pass < 3 {
				pass++
				row = interlacePasses[pass].start
			}
		}
	}

	return func(_ int, entry []byte) {
		for _, px := range entry {
			if row < d.Height {
				out[row*d.Width+col] = px
			}
			advance()
		}
	}
}
