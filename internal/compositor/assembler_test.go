package compositor

import (
	"bytes"
	"testing"
)

func solid(w, h int, r, g, b, a byte) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = r, g, b, a
	}
	return out
}

func TestNewAssemblerRejectsBadBackgroundSize(t *testing.T) {
	if _, err := NewAssembler(2, 2, []byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for mismatched background size")
	}
}

func TestSourceBlendOverwritesWholeRect(t *testing.T) {
	a, err := NewAssembler(2, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	frame := Frame{RGBA: solid(2, 2, 255, 0, 0, 255), X: 0, Y: 0, Width: 2, Height: 2, Blend: BlendSource, Disposal: DisposeNone}
	out, err := a.Next(frame)
	if err != nil {
		t.Fatal(err)
	}
	want := solid(2, 2, 255, 0, 0, 255)
	if !bytes.Equal(out, want) {
		t.Fatalf("out = %v; want %v", out, want)
	}
}

func TestDisposeBackgroundClearsRectBeforeNextFrame(t *testing.T) {
	a, _ := NewAssembler(2, 1, nil)
	// Frame 1: paint the left pixel opaque red, disposal=Background.
	f1 := Frame{RGBA: solid(1, 1, 255, 0, 0, 255), X: 0, Y: 0, Width: 1, Height: 1, Blend: BlendSource, Disposal: DisposeBackground}
	if _, err := a.Next(f1); err != nil {
		t.Fatal(err)
	}
	// Frame 2: paint the right pixel; left pixel should now be cleared
	// since frame 1's disposal runs before frame 2 paints.
	f2 := Frame{RGBA: solid(1, 1, 0, 255, 0, 255), X: 1, Y: 0, Width: 1, Height: 1, Blend: BlendSource, Disposal: DisposeNone}
	out, err := a.Next(f2)
	if err != nil {
		t.Fatal(err)
	}
	want := append(solid(1, 1, 0, 0, 0, 0), solid(1, 1, 0, 255, 0, 255)...)
	if !bytes.Equal(out, want) {
		t.Fatalf("out = %v; want %v", out, want)
	}
}

func TestDisposePreviousRestoresPriorSnapshot(t *testing.T) {
	a, _ := NewAssembler(1, 1, nil)
	base := Frame{RGBA: solid(1, 1, 10, 20, 30, 255), X: 0, Y: 0, Width: 1, Height: 1, Blend: BlendSource, Disposal: DisposeNone}
	if _, err := a.Next(base); err != nil {
		t.Fatal(err)
	}
	overlay := Frame{RGBA: solid(1, 1, 200, 200, 200, 255), X: 0, Y: 0, Width: 1, Height: 1, Blend: BlendSource, Disposal: DisposePrevious}
	if _, err := a.Next(overlay); err != nil {
		t.Fatal(err)
	}
	// Next frame paints nothing new over the overlay's rect; disposal
	// from the overlay frame should restore the base frame's pixel.
	probe := Frame{RGBA: nil, X: 0, Y: 0, Width: 0, Height: 0, Blend: BlendSource, Disposal: DisposeNone}
	out, err := a.Next(probe)
	if err != nil {
		t.Fatal(err)
	}
	want := solid(1, 1, 10, 20, 30, 255)
	if !bytes.Equal(out, want) {
		t.Fatalf("out = %v; want %v", out, want)
	}
}

func TestBlendOverLeavesDestinationAlphaUntouched(t *testing.T) {
	a, _ := NewAssembler(1, 1, solid(1, 1, 0, 0, 0, 0))
	f := Frame{RGBA: solid(1, 1, 255, 0, 0, 128), X: 0, Y: 0, Width: 1, Height: 1, Blend: BlendOver, Disposal: DisposeNone}
	out, err := a.Next(f)
	if err != nil {
		t.Fatal(err)
	}
	// Destination alpha started at 0 and partial-alpha blending must not
	// touch it, even though RGB shifted toward the source color.
	if out[3] != 0 {
		t.Fatalf("destination alpha = %d; want unchanged 0", out[3])
	}
}

func TestNextRejectsOutOfBoundsRect(t *testing.T) {
	a, _ := NewAssembler(2, 2, nil)
	f := Frame{RGBA: solid(3, 3, 0, 0, 0, 0), X: 0, Y: 0, Width: 3, Height: 3, Blend: BlendSource}
	if _, err := a.Next(f); err == nil {
		t.Fatalf("expected error for out-of-bounds frame rect")
	}
}
