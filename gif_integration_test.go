package imaganim

import "testing"

// packLZWCodes packs LZW codes LSB-first at the given bit widths, mirroring
// the GIF bitstream convention; used only to build small test fixtures
// since this module implements no GIF encoder.
func packLZWCodes(codes []uint16, widths []int) []byte {
	var bitBuf uint64
	var nbits int
	var out []byte
	for i, c := range codes {
		bitBuf |= uint64(c) << uint(nbits)
		nbits += widths[i]
		for nbits >= 8 {
			out = append(out, byte(bitBuf))
			bitBuf >>= 8
			nbits -= 8
		}
	}
	if nbits > 0 {
		out = append(out, byte(bitBuf))
	}
	return out
}

func TestDecodeAnyStaticGIFProducesOneFrame(t *testing.T) {
	// 2x2 solid-red image: root codes 0(red),1(white); min code size 2
	// means clear=4, end=5, and initial width 3 bits. The second and third
	// 0 teach codes 6 and 7, so the last two codes are 4 bits wide.
	codes := []uint16{4, 0, 0, 0, 0, 5}
	widths := []int{3, 3, 3, 3, 4, 4}
	lzwData := packLZWCodes(codes, widths)

	var b []byte
	b = append(b, []byte("GIF89a")...)
	b = append(b, 2, 0, 2, 0, 0x80, 0, 0)
	b = append(b, 255, 0, 0, 255, 255, 255) // index0=red, index1=white
	b = append(b, 0x2C, 0, 0, 0, 0, 2, 0, 2, 0, 0)
	b = append(b, 2)
	b = append(b, byte(len(lzwData)))
	b = append(b, lzwData...)
	b = append(b, 0) // terminator
	b = append(b, 0x3B)

	anim, err := DecodeAny(b, true)
	if err != nil {
		t.Fatal(err)
	}
	if anim.Width != 2 || anim.Height != 2 {
		t.Fatalf("dims = %dx%d; want 2x2", anim.Width, anim.Height)
	}
	if len(anim.Frames) != 1 {
		t.Fatalf("frames = %d; want 1", len(anim.Frames))
	}
	want := []byte{255, 0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255, 255, 0, 0, 255}
	got := anim.Frames[0].RGBA
	if len(got) != len(want) {
		t.Fatalf("rgba len = %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rgba = %v; want %v", got, want)
		}
	}
}
