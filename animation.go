package imaganim

import (
	"image"
	"time"
)

// Frame is one fully composited animation frame: a complete RGBA
// rectangle covering the whole canvas (not just the region the source
// format's frame touched) plus how long it should be displayed.
type Frame struct {
	RGBA     []byte // row-major, 4 bytes per pixel, len == Width*Height*4 of the owning Animation
	Duration time.Duration
}

// Image returns a view of the frame's pixels as a standard library
// image.NRGBA, sharing the underlying byte slice rather than copying it.
func (f Frame) Image(width, height int) *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.RGBA,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// Animation is the uniform decode result for both GIF and PNG/APNG
// input: a shared canvas size, a loop count, and an ordered list of
// fully composited frames.
type Animation struct {
	Width, Height int
	// LoopCount is 0 for infinite looping, or the exact number of times
	// the animation should play. A non-animated PNG decodes to LoopCount 0
	// and exactly one Frame; a GIF without a Netscape looping extension
	// decodes to LoopCount 1.
	LoopCount int
	Frames    []Frame
}
