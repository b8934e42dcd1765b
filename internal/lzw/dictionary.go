// Package lzw implements the growing code table used by GIF's variable-width
// LZW decompression. It plays the role of the original gif_lzw_code_table,
// but stores each entry as its own byte slice in a table sized once for all
// 4096 possible codes.
package lzw

import "fmt"

const (
	// MinCodeSize is the smallest color-table bit depth GIF allows.
	MinCodeSize = 2
	// MaxCodeBits is the widest code width GIF ever uses.
	MaxCodeBits = 12
	// MaxCodeCount is 2^MaxCodeBits, the dictionary's hard ceiling.
	MaxCodeCount = 1 << MaxCodeBits
)

// Dictionary is the growable code table for one GIF LZW substream. Codes
// 0..clearCode-1 are the literal root palette indices, clearCode and
// clearCode+1 are the reserved Clear and End-of-Information codes, and
// everything from clearCode+2 upward is a dynamically learned string.
type Dictionary struct {
	rootSize   int // number of literal root codes (2^codeSize)
	clearCode  uint16
	endCode    uint16
	nextCode   uint16
	codeWidth  int
	entries    [][]byte // entries[c] is the decoded byte string for code c
	prevSuffix byte     // first byte of the most recently decoded entry (for KwKwK)
}

// New builds a Dictionary for the given GIF initial code size (the byte
// found right before the image data sub-blocks, 2..8).
func New(initialCodeSize int) (*Dictionary, error) {
	if initialCodeSize < MinCodeSize || initialCodeSize > 8 {
		return nil, fmt.Errorf("lzw: invalid initial code size %d", initialCodeSize)
	}
	d := &Dictionary{}
	d.reset(initialCodeSize)
	return d, nil
}

// reset rebuilds the table down to its root entries plus Clear/End, as
// happens at stream start and at every Clear code.
func (d *Dictionary) reset(initialCodeSize int) {
	d.rootSize = 1 << initialCodeSize
	d.clearCode = uint16(d.rootSize)
	d.endCode = d.clearCode + 1
	d.nextCode = d.endCode + 1
	d.codeWidth = initialCodeSize + 1

	d.entries = make([][]byte, MaxCodeCount)
	for c := 0; c < d.rootSize; c++ {
		d.entries[c] = []byte{byte(c)}
	}
}

// Reset restores the dictionary to its just-cleared state using the same
// initial code size it was built with. Called whenever a Clear code is
// read mid-stream.
func (d *Dictionary) Reset() {
	initialSize := log2(d.rootSize)
	d.reset(initialSize)
}

func log2(n int) int {
	bits := 0
	for n > 1 {
		n >>= 1
		bits++
	}
	return bits
}

// ClearCode returns the reserved Clear code value.
func (d *Dictionary) ClearCode() uint16 { return d.clearCode }

// EndCode returns the reserved End-of-Information code value.
func (d *Dictionary) EndCode() uint16 { return d.endCode }

// CodeWidth returns the current code width in bits.
func (d *Dictionary) CodeWidth() int { return d.codeWidth }

// NextCode returns the next code that would be assigned by Add.
func (d *Dictionary) NextCode() uint16 { return d.nextCode }

// IsSaturated reports whether the dictionary has reached its 12-bit,
// 4096-entry ceiling. Once saturated, a well-formed encoder must emit a
// Clear before adding anything else; GifImageDecoder rejects any other
// code (except End) read at that point.
func (d *Dictionary) IsSaturated() bool {
	return d.nextCode >= MaxCodeCount
}

// Lookup returns the decoded byte string for code, and whether code is
// currently a valid (assigned) entry.
func (d *Dictionary) Lookup(code uint16) ([]byte, bool) {
	if int(code) >= len(d.entries) {
		return nil, false
	}
	e := d.entries[code]
	if e == nil {
		return nil, false
	}
	return e, true
}

// Add appends a new dictionary entry built from prior (the bytes for the
// previously decoded code) plus firstByte (the first byte of the entry
// currently being decoded — the "K" in the classic KwKwK special case).
// It returns the newly assigned code, or false if the dictionary is
// already saturated.
func (d *Dictionary) Add(prior []byte, firstByte byte) (uint16, bool) {
	if d.IsSaturated() {
		return 0, false
	}
	entry := make([]byte, len(prior)+1)
	copy(entry, prior)
	entry[len(prior)] = firstByte
	code := d.nextCode
	d.entries[code] = entry
	d.nextCode++

	// Bit width grows the moment nextCode would no longer fit in the
	// current width, capped at 12 bits.
	if d.nextCode > (1<<uint(d.codeWidth))-1 && d.codeWidth < MaxCodeBits {
		d.codeWidth++
	}
	return code, true
}
