package imaganim

import (
	"errors"
	"fmt"
	"time"

	"github.com/deepteams/imaganim/internal/compositor"
	"github.com/deepteams/imaganim/internal/gifformat"
	"github.com/deepteams/imaganim/internal/gifimage"
	"github.com/deepteams/imaganim/internal/pngformat"
	"github.com/deepteams/imaganim/internal/pngimage"
)

// DecodeAny sniffs data's signature and dispatches to DecodeGIF or
// DecodePNG. ignoreBackground is forwarded to DecodeGIF; it has no effect
// on PNG input.
func DecodeAny(data []byte, ignoreBackground bool) (anim *Animation, err error) {
	defer recoverAllocationFailure(&err)

	switch {
	case len(data) >= 6 && (string(data[0:6]) == "GIF87a" || string(data[0:6]) == "GIF89a"):
		parsed, perr := gifformat.Parse(data)
		if perr != nil {
			return nil, wrapGIFError(perr)
		}
		return DecodeGIF(parsed, ignoreBackground)
	case len(data) >= 8 && string(data[0:4]) == "\x89PNG":
		parsed, perr := pngformat.Parse(data)
		if perr != nil {
			return nil, wrapPNGError(perr)
		}
		return DecodePNG(parsed)
	default:
		return nil, newDecodeError(KindUnknownFormat, errUnknownSignature)
	}
}

func recoverAllocationFailure(err *error) {
	if r := recover(); r != nil {
		*err = newDecodeError(KindAllocationFailure, fmt.Errorf("recovered: %v", r))
	}
}

func wrapGIFError(err error) error {
	switch {
	case errors.Is(err, gifformat.ErrInputTooShort):
		return newDecodeError(KindInputTooShort, err)
	case errors.Is(err, gifformat.ErrUnknownFormat):
		return newDecodeError(KindUnknownFormat, err)
	default:
		return newDecodeError(KindInvalidFormat, err)
	}
}

// classifyPNGPixelError distinguishes the external zlib collaborator's
// failures from violations of the PNG pixel-reconstruction algorithm
// itself (an unrecognized scanline filter byte), so only the former is
// reported as KindDecompressionFailure.
func classifyPNGPixelError(err error) Kind {
	switch {
	case errors.Is(err, pngformat.ErrInflateFailure):
		return KindDecompressionFailure
	case errors.Is(err, pngimage.ErrUnknownFilterType):
		return KindInvalidEncoding
	default:
		return KindInvalidFormat
	}
}

func wrapPNGError(err error) error {
	switch {
	case errors.Is(err, pngformat.ErrInputTooShort):
		return newDecodeError(KindInputTooShort, err)
	case errors.Is(err, pngformat.ErrUnknownFormat):
		return newDecodeError(KindUnknownFormat, err)
	default:
		return newDecodeError(KindInvalidFormat, err)
	}
}

// DecodeGIF composites an already-tokenized GIF into a uniform Animation.
// When ignoreBackground is false, the canvas is seeded with the Logical
// Screen Descriptor's background color instead of starting transparent —
// a rarely-honored corner of the format.
func DecodeGIF(parsed *gifformat.Parsed, ignoreBackground bool) (anim *Animation, err error) {
	defer recoverAllocationFailure(&err)

	width, height := parsed.Screen.Width, parsed.Screen.Height
	var background []byte
	if !ignoreBackground && parsed.Screen.GlobalColorTableFlag {
		bg := make([]byte, width*height*4)
		idx := parsed.Screen.BackgroundColorIndex * 3
		if idx+2 < len(parsed.GlobalColorTable) {
			r, g, b := parsed.GlobalColorTable[idx], parsed.GlobalColorTable[idx+1], parsed.GlobalColorTable[idx+2]
			for i := 0; i < width*height; i++ {
				o := i * 4
				bg[o], bg[o+1], bg[o+2], bg[o+3] = r, g, b, 0xff
			}
		}
		background = bg
	}

	asm, err := compositor.NewAssembler(width, height, background)
	if err != nil {
		return nil, newDecodeError(KindInvalidFormat, err)
	}

	loopCount := 1
	if parsed.LoopCount >= 0 {
		loopCount = parsed.LoopCount
	}

	out := &Animation{Width: width, Height: height, LoopCount: loopCount}

	for _, img := range parsed.Images {
		palette := img.LocalColorTable
		if palette == nil {
			palette = parsed.GlobalColorTable
		}
		if palette == nil {
			return nil, newDecodeError(KindInvalidFormat, fmt.Errorf("image has neither a local nor a global color table"))
		}

		dec := gifimage.NewDecoder(img.Descriptor.Width, img.Descriptor.Height, img.Descriptor.InterlaceFlag)
		indices, derr := dec.Decode(img.MinCodeSize, img.Data)
		if derr != nil {
			// An LZW stream that violates the algorithm's own constraints
			// (bad code, missing Clear) is an encoding defect, not a
			// failure of an external decompression collaborator.
			return nil, newDecodeError(KindInvalidEncoding, derr)
		}

		var transparentIndex *uint8
		disposal := compositor.DisposeNone
		delay := time.Duration(0)
		if gce := img.GraphicControl; gce != nil {
			if gce.TransparentColorFlag {
				idx := gce.TransparentColorIndex
				transparentIndex = &idx
			}
			disposal = gifDisposal(gce.DisposalMethod)
			delay = time.Duration(gce.DelayTimeHundredths) * 10 * time.Millisecond
		}

		rgba := gifimage.ResolveRGBA(indices, palette, transparentIndex)

		frame := compositor.Frame{
			RGBA:     rgba,
			X:        img.Descriptor.Left,
			Y:        img.Descriptor.Top,
			Width:    img.Descriptor.Width,
			Height:   img.Descriptor.Height,
			Disposal: disposal,
			Blend:    compositor.BlendOver, // GIF transparency is binary: skip-or-overwrite
		}
		canvas, cerr := asm.Next(frame)
		if cerr != nil {
			return nil, newDecodeError(KindInvalidFormat, cerr)
		}
		out.Frames = append(out.Frames, Frame{RGBA: canvas, Duration: delay})
	}

	if len(out.Frames) == 0 {
		return nil, newDecodeError(KindInvalidFormat, fmt.Errorf("GIF contains no image blocks"))
	}
	return out, nil
}

func gifDisposal(method int) compositor.Disposal {
	switch method {
	case 2:
		return compositor.DisposeBackground
	case 3:
		return compositor.DisposePrevious
	default: // 0 (unspecified), 1 (do not dispose), and any reserved value
		return compositor.DisposeNone
	}
}

// DecodePNG composites an already-tokenized PNG/APNG into a uniform
// Animation. A non-animated PNG decodes to a single frame with
// LoopCount 0.
func DecodePNG(parsed *pngformat.Parsed) (anim *Animation, err error) {
	defer recoverAllocationFailure(&err)

	if parsed.IHDR.InterlaceMethod != 0 && parsed.IHDR.InterlaceMethod != 1 {
		return nil, newDecodeError(KindUnsupportedFeature, fmt.Errorf("unknown PNG interlace method %d", parsed.IHDR.InterlaceMethod))
	}
	channels, cerr := pngimage.ChannelsFor(parsed.IHDR.ColorType)
	if cerr != nil {
		return nil, newDecodeError(KindInvalidEncoding, cerr)
	}

	width, height := parsed.IHDR.Width, parsed.IHDR.Height
	if width <= 0 || height <= 0 {
		return nil, newDecodeError(KindInvalidFormat, fmt.Errorf("non-positive PNG dimensions %dx%d", width, height))
	}

	decodeRect := func(compressed []byte, w, h int) ([]byte, error) {
		return decodePNGRect(compressed, w, h, parsed.IHDR.BitDepth, parsed.IHDR.ColorType,
			channels, parsed.IHDR.InterlaceMethod, parsed.Palette, parsed.Transparency)
	}

	asm, aerr := compositor.NewAssembler(width, height, nil)
	if aerr != nil {
		return nil, newDecodeError(KindInvalidFormat, aerr)
	}

	out := &Animation{Width: width, Height: height, LoopCount: parsed.LoopCount}
	if !parsed.IsAnimated {
		out.LoopCount = 0
	}

	if parsed.DefaultImageIsFirstFrame {
		rgba, derr := decodeRect(parsed.DefaultImageData, width, height)
		if derr != nil {
			return nil, newDecodeError(classifyPNGPixelError(derr), derr)
		}
		fc := parsed.FirstFrameControl
		canvas, perr := paintPNGFrame(asm, rgba, fc)
		if perr != nil {
			return nil, newDecodeError(KindInvalidFormat, perr)
		}
		out.Frames = append(out.Frames, Frame{RGBA: canvas, Duration: pngFrameDuration(fc)})
	} else if !parsed.IsAnimated && len(parsed.DefaultImageData) > 0 {
		// Plain, non-animated PNG: the IDAT image is the only frame.
		rgba, derr := decodeRect(parsed.DefaultImageData, width, height)
		if derr != nil {
			return nil, newDecodeError(classifyPNGPixelError(derr), derr)
		}
		fc := pngformat.FrameControl{Width: width, Height: height, DelayNum: 0, DelayDen: 1}
		canvas, perr := paintPNGFrame(asm, rgba, fc)
		if perr != nil {
			return nil, newDecodeError(KindInvalidFormat, perr)
		}
		out.Frames = append(out.Frames, Frame{RGBA: canvas, Duration: pngFrameDuration(fc)})
	}
	// else: animated with a non-animation default image (fcTL does not
	// precede the IDAT) — that IDAT is a fallback for non-APNG-aware
	// viewers only and is not part of the decoded animation sequence.

	for _, fr := range parsed.Frames {
		rgba, derr := decodeRect(fr.Data, fr.Control.Width, fr.Control.Height)
		if derr != nil {
			return nil, newDecodeError(classifyPNGPixelError(derr), derr)
		}
		canvas, perr := paintPNGFrame(asm, rgba, fr.Control)
		if perr != nil {
			return nil, newDecodeError(KindInvalidFormat, perr)
		}
		out.Frames = append(out.Frames, Frame{RGBA: canvas, Duration: pngFrameDuration(fr.Control)})
	}

	if len(out.Frames) == 0 {
		return nil, newDecodeError(KindInvalidFormat, fmt.Errorf("PNG contains no IDAT or fdAT image data"))
	}
	return out, nil
}

func decodePNGRect(compressed []byte, w, h, bitDepth, colorType, channels, interlace int, palette, trns []byte) ([]byte, error) {
	inflated, err := pngformat.Inflate(compressed)
	if err != nil {
		return nil, err
	}

	bpp := pngimage.BytesPerPixel(bitDepth, channels)

	if interlace == 0 {
		rowBytes := pngimage.RowBytes(w, bitDepth, channels)
		unfiltered, err := pngimage.ReverseFilters(inflated, rowBytes, h, bpp)
		if err != nil {
			return nil, err
		}
		samples, err := pngimage.Unpack(unfiltered, w, h, bitDepth, channels, colorType)
		if err != nil {
			return nil, err
		}
		return pngimage.ToRGBA(samples, w, h, colorType, palette, trns)
	}

	// Adam7: the 7 passes are concatenated in the inflated stream, each
	// with its own per-pass row count and filter bytes.
	var passesRGBA [7][]byte
	offset := 0
	for p := 0; p < 7; p++ {
		pw, ph := pngimage.PassDimensions(p, w, h)
		if pw == 0 || ph == 0 {
			continue
		}
		rowBytes := pngimage.RowBytes(pw, bitDepth, channels)
		need := ph * (rowBytes + 1)
		if offset+need > len(inflated) {
			return nil, fmt.Errorf("pngimage: interlaced stream too short at pass %d", p)
		}
		passData := inflated[offset : offset+need]
		offset += need

		unfiltered, err := pngimage.ReverseFilters(passData, rowBytes, ph, bpp)
		if err != nil {
			return nil, err
		}
		samples, err := pngimage.Unpack(unfiltered, pw, ph, bitDepth, channels, colorType)
		if err != nil {
			return nil, err
		}
		rgba, err := pngimage.ToRGBA(samples, pw, ph, colorType, palette, trns)
		if err != nil {
			return nil, err
		}
		passesRGBA[p] = rgba
	}
	return pngimage.Deinterlace(passesRGBA, w, h), nil
}

func paintPNGFrame(asm *compositor.Assembler, rgba []byte, fc pngformat.FrameControl) ([]byte, error) {
	return asm.Next(compositor.Frame{
		RGBA:     rgba,
		X:        fc.XOffset,
		Y:        fc.YOffset,
		Width:    fc.Width,
		Height:   fc.Height,
		Disposal: pngDisposal(fc.DisposeOp),
		Blend:    pngBlend(fc.BlendOp),
	})
}

func pngDisposal(op byte) compositor.Disposal {
	switch op {
	case 1:
		return compositor.DisposeBackground
	case 2:
		return compositor.DisposePrevious
	default:
		return compositor.DisposeNone
	}
}

func pngBlend(op byte) compositor.Blend {
	if op == 1 {
		return compositor.BlendOver
	}
	return compositor.BlendSource
}

func pngFrameDuration(fc pngformat.FrameControl) time.Duration {
	den := fc.DelayDen
	if den == 0 {
		den = 100 // per the APNG spec, a zero denominator means 1/100 sec units
	}
	return time.Duration(fc.DelayNum) * time.Second / time.Duration(den)
}
