// Package pngformat tokenizes a raw PNG byte stream into its chunk
// sequence: the IHDR, an optional palette and transparency chunk, the
// concatenated IDAT (and, for animated PNGs, acTL/fcTL/fdAT) payloads,
// and passthrough recognition of the common ancillary text/metadata
// chunks. Parse validates each chunk's CRC32 but does not inflate or decode
// pixel data; Inflate, called separately, decompresses an IDAT or fdAT
// stream.
package pngformat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

var (
	ErrInputTooShort = errors.New("pngformat: input too short")
	ErrUnknownFormat = errors.New("pngformat: not a PNG file")
	ErrInvalidFormat = errors.New("pngformat: malformed chunk structure")
)

var pngSignature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// IHDR is the mandatory first chunk's fields.
type IHDR struct {
	Width, Height                                  int
	BitDepth, ColorType                            int
	CompressionMethod, FilterMethod, InterlaceMethod int
}

// FrameControl mirrors an APNG fcTL chunk.
type FrameControl struct {
	SequenceNumber           uint32
	Width, Height            int
	XOffset, YOffset         int
	DelayNum, DelayDen       uint16
	DisposeOp, BlendOp       byte
}

// AnimFrame is one fdAT-driven APNG frame (never the default image, even
// when the default image is also reused as the first animation frame —
// see Parsed.DefaultImageIsFirstFrame).
type AnimFrame struct {
	Control FrameControl
	Data    []byte // concatenated, still zlib-compressed fdAT payloads (sequence number stripped)
}

// TextChunk is a passthrough record of a recognized-but-not-decoded
// ancillary text chunk (tEXt/zTXt/iTXt); SPEC_FULL.md's supplemented
// features surface these without interpreting compression or language
// tags.
type TextChunk struct {
	Type    string
	Keyword string
	Raw     []byte
}

// Parsed is the tokenized structure of one PNG (or APNG) file.
type Parsed struct {
	IHDR             IHDR
	Palette          []byte // RGB triples, nil if absent (non-indexed image)
	Transparency     []byte // tRNS payload, meaning depends on ColorType
	DefaultImageData []byte // concatenated IDAT payloads, still zlib-compressed

	IsAnimated bool
	NumFrames  int
	LoopCount  int // acTL num_plays: 0 = infinite
	// DefaultImageIsFirstFrame is true when an fcTL precedes the IDAT: the
	// default image doubles as animation frame 0, per the APNG spec.
	DefaultImageIsFirstFrame bool
	FirstFrameControl        FrameControl // valid only if DefaultImageIsFirstFrame
	Frames                   []AnimFrame

	Text  []TextChunk
	Gamma *uint32 // gAMA payload if present
	SRGB  *byte   // sRGB rendering intent if present
}

type chunk struct {
	typ  string
	data []byte
}

// Parse tokenizes a complete PNG byte stream.
func Parse(data []byte) (*Parsed, error) {
	if len(data) < 8+25 { // signature + minimal IHDR chunk
		return nil, ErrInputTooShort
	}
	for i := 0; i < 8; i++ {
		if data[i] != pngSignature[i] {
			return nil, ErrUnknownFormat
		}
	}

	out := &Parsed{LoopCount: -1}
	pos := 8
	sawIHDR := false
	var currentFdatData []byte
	var currentFdatFC *FrameControl

	flushFdat := func() {
		if currentFdatFC != nil {
			out.Frames = append(out.Frames, AnimFrame{Control: *currentFdatFC, Data: currentFdatData})
		}
		currentFdatFC = nil
		currentFdatData = nil
	}

	for {
		c, n, err := readChunk(data, pos)
		if err != nil {
			return nil, err
		}
		pos += n

		switch c.typ {
		case "IHDR":
			ihdr, err := parseIHDR(c.data)
			if err != nil {
				return nil, err
			}
			out.IHDR = ihdr
			sawIHDR = true

		case "PLTE":
			out.Palette = c.data

		case "tRNS":
			out.Transparency = c.data

		case "IDAT":
			if !sawIHDR {
				return nil, fmt.Errorf("%w: IDAT before IHDR", ErrInvalidFormat)
			}
			out.DefaultImageData = append(out.DefaultImageData, c.data...)

		case "acTL":
			if len(c.data) != 8 {
				return nil, fmt.Errorf("%w: acTL length %d != 8", ErrInvalidFormat, len(c.data))
			}
			out.IsAnimated = true
			out.NumFrames = int(binary.BigEndian.Uint32(c.data[0:4]))
			out.LoopCount = int(binary.BigEndian.Uint32(c.data[4:8]))

		case "fcTL":
			if !out.IsAnimated {
				return nil, fmt.Errorf("%w: fcTL present without a preceding acTL", ErrInvalidFormat)
			}
			fc, err := parseFcTL(c.data)
			if err != nil {
				return nil, err
			}
			if len(out.DefaultImageData) == 0 && !out.DefaultImageIsFirstFrame && currentFdatFC == nil && len(out.Frames) == 0 {
				// First fcTL seen before any IDAT: default image becomes
				// frame 0, described by this fcTL.
				out.DefaultImageIsFirstFrame = true
				out.FirstFrameControl = fc
			} else {
				flushFdat()
				fcCopy := fc
				currentFdatFC = &fcCopy
			}

		case "fdAT":
			if !out.IsAnimated {
				return nil, fmt.Errorf("%w: fdAT present without a preceding acTL", ErrInvalidFormat)
			}
			if len(c.data) < 4 {
				return nil, fmt.Errorf("%w: fdAT shorter than its sequence number field", ErrInvalidFormat)
			}
			currentFdatData = append(currentFdatData, c.data[4:]...)

		case "tEXt", "zTXt", "iTXt":
			out.Text = append(out.Text, TextChunk{Type: c.typ, Keyword: textKeyword(c.data), Raw: c.data})

		case "gAMA":
			if len(c.data) == 4 {
				v := binary.BigEndian.Uint32(c.data)
				out.Gamma = &v
			}

		case "sRGB":
			if len(c.data) == 1 {
				v := c.data[0]
				out.SRGB = &v
			}

		case "IEND":
			flushFdat()
			return out, nil

		default:
			// pHYs and any other ancillary chunk: recognized by falling
			// through the switch, not interpreted further, per the
			// chunk-recognition-only non-goal.
		}
	}
}

func textKeyword(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return ""
}

// validBitDepths lists, per PNG color type, the bit depths the format
// actually permits (PNG §11.2.2).
var validBitDepths = map[int][]int{
	0: {1, 2, 4, 8, 16}, // grayscale
	2: {8, 16},          // truecolor
	3: {1, 2, 4, 8},     // indexed
	4: {8, 16},          // grayscale + alpha
	6: {8, 16},          // truecolor + alpha
}

func parseIHDR(d []byte) (IHDR, error) {
	if len(d) != 13 {
		return IHDR{}, fmt.Errorf("%w: IHDR length %d != 13", ErrInvalidFormat, len(d))
	}
	colorType := int(d[9])
	bitDepth := int(d[8])
	depths, ok := validBitDepths[colorType]
	if !ok {
		return IHDR{}, fmt.Errorf("%w: unknown color type %d", ErrInvalidFormat, colorType)
	}
	validDepth := false
	for _, v := range depths {
		if v == bitDepth {
			validDepth = true
			break
		}
	}
	if !validDepth {
		return IHDR{}, fmt.Errorf("%w: bit depth %d is not valid for color type %d", ErrInvalidFormat, bitDepth, colorType)
	}
	return IHDR{
		Width:             int(binary.BigEndian.Uint32(d[0:4])),
		Height:            int(binary.BigEndian.Uint32(d[4:8])),
		BitDepth:          bitDepth,
		ColorType:         colorType,
		CompressionMethod: int(d[10]),
		FilterMethod:      int(d[11]),
		InterlaceMethod:   int(d[12]),
	}, nil
}

func parseFcTL(d []byte) (FrameControl, error) {
	if len(d) != 26 {
		return FrameControl{}, fmt.Errorf("%w: fcTL length %d != 26", ErrInvalidFormat, len(d))
	}
	return FrameControl{
		SequenceNumber: binary.BigEndian.Uint32(d[0:4]),
		Width:          int(binary.BigEndian.Uint32(d[4:8])),
		Height:         int(binary.BigEndian.Uint32(d[8:12])),
		XOffset:        int(binary.BigEndian.Uint32(d[12:16])),
		YOffset:        int(binary.BigEndian.Uint32(d[16:20])),
		DelayNum:       binary.BigEndian.Uint16(d[20:22]),
		DelayDen:       binary.BigEndian.Uint16(d[22:24]),
		DisposeOp:      d[24],
		BlendOp:        d[25],
	}, nil
}

// readChunk reads one length-prefixed, CRC-validated chunk starting at
// pos, returning it and the number of bytes consumed.
func readChunk(data []byte, pos int) (chunk, int, error) {
	if pos+8 > len(data) {
		return chunk{}, 0, ErrInputTooShort
	}
	length := binary.BigEndian.Uint32(data[pos : pos+4])
	typ := string(data[pos+4 : pos+8])
	start := pos + 8
	end := start + int(length)
	if end < start {
		return chunk{}, 0, fmt.Errorf("%w: %s chunk length %d out of range", ErrInvalidFormat, typ, length)
	}
	if end+4 > len(data) {
		return chunk{}, 0, fmt.Errorf("%w: %s chunk length %d exceeds remaining input", ErrInputTooShort, typ, length)
	}
	payload := data[start:end]
	wantCRC := binary.BigEndian.Uint32(data[end : end+4])
	gotCRC := crc32.ChecksumIEEE(data[pos+4 : end])
	if gotCRC != wantCRC {
		return chunk{}, 0, fmt.Errorf("%w: %s chunk CRC mismatch", ErrInvalidFormat, typ)
	}
	return chunk{typ: typ, data: payload}, end + 4 - pos, nil
}
