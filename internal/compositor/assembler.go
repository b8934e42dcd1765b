// Package compositor implements the disposal/blend state machine shared by
// GIF and APNG animation: each new frame is painted onto a persistent
// canvas according to its blend method, a snapshot of the result becomes
// the animation's next visible frame, and the frame's disposal method then
// decides what the canvas looks like before the following frame paints.
package compositor

import "fmt"

// Disposal names what happens to the canvas region a frame occupied once
// the next frame is about to be painted.
type Disposal int

const (
	// DisposeNone leaves the canvas exactly as the frame left it. This is
	// also used for GIF disposal value 0 ("unspecified"), which in
	// practice every decoder treats the same as "leave in place".
	DisposeNone Disposal = iota
	// DisposeBackground clears the frame's rectangle to transparent before
	// the next frame paints.
	DisposeBackground
	// DisposePrevious restores the canvas to whatever it looked like
	// immediately before this frame was painted.
	DisposePrevious
)

// Blend names how a frame's pixels are combined with whatever is already
// on the canvas.
type Blend int

const (
	// BlendSource overwrites the canvas rectangle outright.
	BlendSource Blend = iota
	// BlendOver performs non-premultiplied "source over destination"
	// alpha blending, leaving destination alpha untouched rather than
	// computing the full Porter-Duff result. This mirrors every
	// real-world APNG/WebP animation decoder observed in the wild, not
	// just a theoretical reading of the PNG extensions spec.
	BlendOver
)

// Frame is one animation frame's already-decoded pixel rectangle plus its
// compositing metadata. RGBA must be exactly Width*Height*4 bytes.
type Frame struct {
	RGBA                 []byte
	X, Y, Width, Height  int
	Disposal             Disposal
	Blend                Blend
}

// Assembler holds the running canvas for one animation and produces the
// fully composited RGBA frame for each input frame in sequence.
type Assembler struct {
	width, height int
	canvas        []byte // current painted state, width*height*4
	pre           []byte // canvas snapshot from just before the last Next call
	pendingRect   rect
	pendingDispose Disposal
	hasPending    bool
}

type rect struct{ x, y, w, h int }

// NewAssembler creates an Assembler for a canvas of the given size. If
// background is non-nil it must be exactly width*height*4 bytes and seeds
// the canvas (used by GIF's rarely-honored background color index);
// nil means the canvas starts fully transparent.
func NewAssembler(width, height int, background []byte) (*Assembler, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("compositor: invalid canvas size %dx%d", width, height)
	}
	canvas := make([]byte, width*height*4)
	if background != nil {
		if len(background) != len(canvas) {
			return nil, fmt.Errorf("compositor: background size %d != canvas size %d", len(background), len(canvas))
		}
		copy(canvas, background)
	}
	return &Assembler{width: width, height: height, canvas: canvas}, nil
}

// Next applies the pending disposal from the previous frame (if any),
// paints f onto the canvas per its Blend method, and returns a snapshot
// of the resulting canvas — the frame the caller should emit. The
// Assembler retains f.Disposal internally to apply before the next call.
func (a *Assembler) Next(f Frame) ([]byte, error) {
	if f.Width < 0 || f.Height < 0 || f.X < 0 || f.Y < 0 ||
		f.X+f.Width > a.width || f.Y+f.Height > a.height {
		return nil, fmt.Errorf("compositor: frame rect (%d,%d %dx%d) out of canvas bounds %dx%d",
			f.X, f.Y, f.Width, f.Height, a.width, a.height)
	}
	if len(f.RGBA) != f.Width*f.Height*4 {
		return nil, fmt.Errorf("compositor: frame RGBA length %d != %dx%d*4", len(f.RGBA), f.Width, f.Height)
	}

	a.applyPendingDisposal()

	// Snapshot the canvas as it stood right before painting this frame:
	// needed if this frame's own disposal turns out to be DisposePrevious.
	a.pre = append(a.pre[:0], a.canvas...)

	switch f.Blend {
	case BlendSource:
		a.paintSource(f)
	case BlendOver:
		a.paintOver(f)
	default:
		return nil, fmt.Errorf("compositor: unknown blend method %d", f.Blend)
	}

	a.pendingRect = rect{f.X, f.Y, f.Width, f.Height}
	a.pendingDispose = f.Disposal
	a.hasPending = true

	out := make([]byte, len(a.canvas))
	copy(out, a.canvas)
	return out, nil
}

func (a *Assembler) applyPendingDisposal() {
	if !a.hasPending {
		return
	}
	r := a.pendingRect
	switch a.pendingDispose {
	case DisposeNone:
		// no-op: canvas already reflects the painted frame
	case DisposeBackground:
		a.clearRect(r)
	case DisposePrevious:
		a.restoreRect(r, a.pre)
	}
	a.hasPending = false
}

func (a *Assembler) clearRect(r rect) {
	for y := r.y; y < r.y+r.h; y++ {
		rowStart := (y*a.width + r.x) * 4
		for x := 0; x < r.w; x++ {
			o := rowStart + x*4
			a.canvas[o], a.canvas[o+1], a.canvas[o+2], a.canvas[o+3] = 0, 0, 0, 0
		}
	}
}

func (a *Assembler) restoreRect(r rect, snapshot []byte) {
	for y := r.y; y < r.y+r.h; y++ {
		rowStart := (y*a.width + r.x) * 4
		copy(a.canvas[rowStart:rowStart+r.w*4], snapshot[rowStart:rowStart+r.w*4])
	}
}

func (a *Assembler) paintSource(f Frame) {
	for y := 0; y < f.Height; y++ {
		srcRow := f.RGBA[y*f.Width*4 : (y+1)*f.Width*4]
		dstOff := ((f.Y+y)*a.width + f.X) * 4
		copy(a.canvas[dstOff:dstOff+f.Width*4], srcRow)
	}
}

// paintOver performs non-premultiplied source-over-destination blending,
// pixel by pixel, leaving destination alpha unmodified (the documented
// divergence from a strict Porter-Duff "over").
func (a *Assembler) paintOver(f Frame) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			so := (y*f.Width + x) * 4
			sr, sg, sb, sa := f.RGBA[so], f.RGBA[so+1], f.RGBA[so+2], f.RGBA[so+3]
			do := (((f.Y+y)*a.width + f.X + x) * 4)
			if sa == 0 {
				continue
			}
			if sa == 0xff {
				a.canvas[do], a.canvas[do+1], a.canvas[do+2] = sr, sg, sb
				a.canvas[do+3] = 0xff
				continue
			}
			// Partial alpha: blend RGB but deliberately leave destination
			// alpha untouched, matching every real-world decoder's
			// non-premultiplied "over" rather than strict Porter-Duff.
			dr, dg, db := a.canvas[do], a.canvas[do+1], a.canvas[do+2]
			blend := func(s, d byte) byte {
				return byte((int(s)*int(sa) + int(d)*(255-int(sa))) / 255)
			}
			a.canvas[do] = blend(sr, dr)
			a.canvas[do+1] = blend(sg, dg)
			a.canvas[do+2] = blend(sb, db)
		}
	}
}
