package imaganim

import (
	"errors"

	"github.com/deepteams/imaganim/internal/gifformat"
	"github.com/deepteams/imaganim/internal/pngformat"
)

var errUnknownSignature = errors.New("imaganim: neither a GIF nor a PNG signature")

// Features is the cheap, header-only summary Probe returns: enough to
// decide whether to bother decoding at all without paying for LZW or
// zlib decompression.
type Features struct {
	Format     string // "gif" or "png"
	Width      int
	Height     int
	IsAnimated bool
	FrameCount int // best-effort: GIF counts image blocks, PNG reads acTL's declared count
}

// Probe reads only the container-level structure of data (GIF blocks or
// PNG chunks) and reports its dimensions and animation status without
// performing any LZW or zlib decompression.
func Probe(data []byte) (*Features, error) {
	switch {
	case len(data) >= 6 && (string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a"):
		parsed, err := gifformat.Parse(data)
		if err != nil {
			return nil, wrapGIFError(err)
		}
		return &Features{
			Format:     "gif",
			Width:      parsed.Screen.Width,
			Height:     parsed.Screen.Height,
			IsAnimated: len(parsed.Images) > 1,
			FrameCount: len(parsed.Images),
		}, nil
	case len(data) >= 8 && string(data[0:4]) == "\x89PNG":
		parsed, err := pngformat.Parse(data)
		if err != nil {
			return nil, wrapPNGError(err)
		}
		frameCount := parsed.NumFrames
		if !parsed.IsAnimated {
			frameCount = 1
		}
		return &Features{
			Format:     "png",
			Width:      parsed.IHDR.Width,
			Height:     parsed.IHDR.Height,
			IsAnimated: parsed.IsAnimated,
			FrameCount: frameCount,
		}, nil
	default:
		return nil, newDecodeError(KindUnknownFormat, errUnknownSignature)
	}
}
