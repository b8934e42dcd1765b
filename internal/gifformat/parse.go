// Package gifformat tokenizes a raw GIF byte stream into its header,
// logical screen descriptor, color tables, and ordered block stream
// (image descriptors and the extensions that precede them), without
// performing any LZW decompression or pixel reconstruction itself.
package gifformat

import (
	"errors"
	"fmt"
)

var (
	ErrInputTooShort = errors.New("gifformat: input too short")
	ErrUnknownFormat = errors.New("gifformat: not a GIF file")
	ErrInvalidFormat = errors.New("gifformat: malformed block structure")
)

const (
	extIntroducer     = 0x21
	extGraphicControl = 0xF9
	extComment        = 0xFE
	extPlainText      = 0x01
	extApplication    = 0xFF
	imageSeparator    = 0x2C
	trailer           = 0x3B
)

// LogicalScreenDescriptor is the fixed 7-byte block following the header.
type LogicalScreenDescriptor struct {
	Width, Height         int
	GlobalColorTableFlag  bool
	ColorResolution       int
	SortFlag              bool
	GlobalColorTableSize  int // entry count, a power of two from 2 to 256
	BackgroundColorIndex  int
	PixelAspectRatio      int
}

// GraphicControlExtension carries per-image timing/transparency/disposal
// metadata; it always immediately precedes the image it governs when
// present.
type GraphicControlExtension struct {
	DisposalMethod        int
	UserInputFlag         bool
	TransparentColorFlag  bool
	DelayTimeHundredths   int
	TransparentColorIndex uint8
}

// ImageDescriptor is an image block's fixed 10-byte header.
type ImageDescriptor struct {
	Left, Top, Width, Height int
	LocalColorTableFlag      bool
	InterlaceFlag            bool
	SortFlag                 bool
	LocalColorTableSize      int
}

// ImageBlock is one complete image: its descriptor, optional local color
// table, the Graphic Control Extension that preceded it (if any), and its
// still-LZW-compressed pixel data with length bytes stripped out.
type ImageBlock struct {
	Descriptor      ImageDescriptor
	LocalColorTable []byte // RGB triples
	GraphicControl  *GraphicControlExtension
	MinCodeSize     int
	Data            []byte
}

// Parsed is the full tokenized structure of one GIF file.
type Parsed struct {
	Version          string // "GIF87a" or "GIF89a"
	Screen           LogicalScreenDescriptor
	GlobalColorTable []byte
	// LoopCount is -1 when no Netscape application extension was present
	// (play once), 0 for infinite looping, or a positive repeat count.
	LoopCount int
	Comments  [][]byte
	PlainText [][]byte
	Images    []ImageBlock
}

type parser struct {
	data []byte
	pos  int
}

// Parse tokenizes a complete GIF byte stream.
func Parse(data []byte) (*Parsed, error) {
	if len(data) < 13 {
		return nil, ErrInputTooShort
	}
	version := string(data[0:6])
	if version != "GIF87a" && version != "GIF89a" {
		return nil, ErrUnknownFormat
	}

	p := &parser{data: data, pos: 6}
	out := &Parsed{Version: version, LoopCount: -1}

	screen, err := p.readScreenDescriptor()
	if err != nil {
		return nil, err
	}
	out.Screen = screen

	if screen.GlobalColorTableFlag {
		gct, err := p.readColorTable(screen.GlobalColorTableSize)
		if err != nil {
			return nil, err
		}
		out.GlobalColorTable = gct
	}

	var pendingGCE *GraphicControlExtension
	for {
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("%w: unexpected end of stream before trailer", ErrInvalidFormat)
		}
		tag := p.data[p.pos]
		p.pos++

		switch tag {
		case trailer:
			return out, nil

		case imageSeparator:
			img, err := p.readImageBlock(pendingGCE)
			if err != nil {
				return nil, err
			}
			out.Images = append(out.Images, img)
			pendingGCE = nil

		case extIntroducer:
			if p.pos >= len(p.data) {
				return nil, fmt.Errorf("%w: truncated extension", ErrInvalidFormat)
			}
			label := p.data[p.pos]
			p.pos++
			switch label {
			case extGraphicControl:
				gce, err := p.readGraphicControl()
				if err != nil {
					return nil, err
				}
				pendingGCE = gce
			case extApplication:
				loop, err := p.readApplicationExtension()
				if err != nil {
					return nil, err
				}
				if loop >= 0 {
					out.LoopCount = loop
				}
			case extComment:
				blob, err := p.readSubBlocks()
				if err != nil {
					return nil, err
				}
				out.Comments = append(out.Comments, blob)
			case extPlainText:
				blob, err := p.readSubBlocks()
				if err != nil {
					return nil, err
				}
				out.PlainText = append(out.PlainText, blob)
			default:
				// Unknown extension label: skip its sub-blocks per the
				// GIF spec's forward-compatibility rule.
				if _, err := p.readSubBlocks(); err != nil {
					return nil, err
				}
			}

		default:
			return nil, fmt.Errorf("%w: unexpected block tag %#x at offset %d", ErrInvalidFormat, tag, p.pos-1)
		}
	}
}

func (p *parser) need(n int) error {
	if p.pos+n > len(p.data) {
		return ErrInputTooShort
	}
	return nil
}

func (p *parser) readScreenDescriptor() (LogicalScreenDescriptor, error) {
	if err := p.need(7); err != nil {
		return LogicalScreenDescriptor{}, err
	}
	b := p.data[p.pos : p.pos+7]
	p.pos += 7
	packed := b[4]
	return LogicalScreenDescriptor{
		Width:                int(b[0]) | int(b[1])<<8,
		Height:               int(b[2]) | int(b[3])<<8,
		GlobalColorTableFlag: packed&0x80 != 0,
		ColorResolution:      int(packed>>4) & 0x07,
		SortFlag:             packed&0x08 != 0,
		GlobalColorTableSize: 1 << (uint(packed&0x07) + 1),
		BackgroundColorIndex: int(b[5]),
		PixelAspectRatio:     int(b[6]),
	}, nil
}

func (p *parser) readColorTable(entries int) ([]byte, error) {
	n := entries * 3
	if err := p.need(n); err != nil {
		return nil, err
	}
	table := p.data[p.pos : p.pos+n]
	p.pos += n
	return table, nil
}

func (p *parser) readGraphicControl() (*GraphicControlExtension, error) {
	if err := p.need(1); err != nil {
		return nil, err
	}
	blockSize := int(p.data[p.pos])
	p.pos++
	if blockSize != 4 {
		return nil, fmt.Errorf("%w: graphic control block size %d != 4", ErrInvalidFormat, blockSize)
	}
	if err := p.need(4); err != nil {
		return nil, err
	}
	b := p.data[p.pos : p.pos+4]
	p.pos += 4
	delay := int(b[1]) | int(b[2])<<8
	if delay == 0 {
		// A zero delay is coerced to 10 centiseconds so that downstream
		// consumers never see a zero-duration frame.
		delay = 10
	}
	gce := &GraphicControlExtension{
		DisposalMethod:        int(b[0]>>2) & 0x07,
		UserInputFlag:         b[0]&0x02 != 0,
		TransparentColorFlag:  b[0]&0x01 != 0,
		DelayTimeHundredths:   delay,
		TransparentColorIndex: b[3],
	}
	if err := p.skipTerminator(); err != nil {
		return nil, err
	}
	return gce, nil
}

// readApplicationExtension reads an application extension block and, if
// it is the Netscape 2.0 looping extension, returns its loop count.
// Returns -1 for any other application extension (its sub-blocks are
// still consumed but its content is not interpreted further).
func (p *parser) readApplicationExtension() (int, error) {
	if err := p.need(1); err != nil {
		return -1, err
	}
	blockSize := int(p.data[p.pos])
	p.pos++
	if blockSize != 11 {
		// Non-standard application block; skip its identifier/auth bytes
		// (if present) then fall through to generic sub-block skipping.
		if err := p.need(blockSize); err != nil {
			return -1, err
		}
		p.pos += blockSize
		if _, err := p.readSubBlocks(); err != nil {
			return -1, err
		}
		return -1, nil
	}
	if err := p.need(11); err != nil {
		return -1, err
	}
	appID := string(p.data[p.pos : p.pos+8])
	p.pos += 11

	sub, err := p.readRawSubBlocks()
	if err != nil {
		return -1, err
	}
	if appID == "NETSCAPE" && len(sub) == 3 && sub[0] == 1 {
		return int(sub[1]) | int(sub[2])<<8, nil
	}
	return -1, nil
}

func (p *parser) readImageBlock(gce *GraphicControlExtension) (ImageBlock, error) {
	if err := p.need(9); err != nil {
		return ImageBlock{}, err
	}
	b := p.data[p.pos : p.pos+9]
	p.pos += 9
	packed := b[8]
	desc := ImageDescriptor{
		Left:                int(b[0]) | int(b[1])<<8,
		Top:                 int(b[2]) | int(b[3])<<8,
		Width:               int(b[4]) | int(b[5])<<8,
		Height:              int(b[6]) | int(b[7])<<8,
		LocalColorTableFlag: packed&0x80 != 0,
		InterlaceFlag:       packed&0x40 != 0,
		SortFlag:            packed&0x20 != 0,
		LocalColorTableSize: 1 << (uint(packed&0x07) + 1),
	}

	var lct []byte
	if desc.LocalColorTableFlag {
		t, err := p.readColorTable(desc.LocalColorTableSize)
		if err != nil {
			return ImageBlock{}, err
		}
		lct = t
	}

	if err := p.need(1); err != nil {
		return ImageBlock{}, err
	}
	minCodeSize := int(p.data[p.pos])
	p.pos++

	data, err := p.readSubBlocks()
	if err != nil {
		return ImageBlock{}, err
	}

	return ImageBlock{
		Descriptor:      desc,
		LocalColorTable: lct,
		GraphicControl:  gce,
		MinCodeSize:     minCodeSize,
		Data:            data,
	}, nil
}

// readSubBlocks concatenates a data sub-block stream (each prefixed with
// a length byte, terminated by a zero-length block) into one flat buffer.
func (p *parser) readSubBlocks() ([]byte, error) {
	return p.readRawSubBlocks()
}

func (p *parser) readRawSubBlocks() ([]byte, error) {
	var out []byte
	for {
		if err := p.need(1); err != nil {
			return nil, err
		}
		n := int(p.data[p.pos])
		p.pos++
		if n == 0 {
			return out, nil
		}
		if err := p.need(n); err != nil {
			return nil, err
		}
		out = append(out, p.data[p.pos:p.pos+n]...)
		p.pos += n
	}
}

func (p *parser) skipTerminator() error {
	if err := p.need(1); err != nil {
		return err
	}
	if p.data[p.pos] != 0 {
		return fmt.Errorf("%w: expected block terminator", ErrInvalidFormat)
	}
	p.pos++
	return nil
}
