package pngformat

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

func chunkBytes(typ string, data []byte) []byte {
	var b []byte
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	b = append(b, lenBuf[:]...)
	b = append(b, []byte(typ)...)
	b = append(b, data...)
	crc := crc32.ChecksumIEEE(append([]byte(typ), data...))
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc)
	b = append(b, crcBuf[:]...)
	return b
}

func ihdrBytes(w, h, bitDepth, colorType, interlace int) []byte {
	var d [13]byte
	binary.BigEndian.PutUint32(d[0:4], uint32(w))
	binary.BigEndian.PutUint32(d[4:8], uint32(h))
	d[8] = byte(bitDepth)
	d[9] = byte(colorType)
	d[10] = 0
	d[11] = 0
	d[12] = byte(interlace)
	return d[:]
}

func zlibCompress(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return buf.Bytes()
}

func buildMinimalPNG(t *testing.T, idat []byte) []byte {
	t.Helper()
	var b []byte
	b = append(b, pngSignature[:]...)
	b = append(b, chunkBytes("IHDR", ihdrBytes(1, 1, 8, ColorTrueColorAlphaForTest, 0))...)
	b = append(b, chunkBytes("IDAT", idat)...)
	b = append(b, chunkBytes("IEND", nil)...)
	return b
}

// ColorTrueColorAlphaForTest mirrors pngimage.ColorTrueColorAlpha without
// importing that package, keeping this tokenizer test decoupled from pixel
// reconstruction.
const ColorTrueColorAlphaForTest = 6

func TestParseMinimalPNG(t *testing.T) {
	raw := []byte{0, 10, 20, 30, 255} // filter byte None + one RGBA pixel
	idat := zlibCompress(t, raw)
	data := buildMinimalPNG(t, idat)

	p, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.IHDR.Width != 1 || p.IHDR.Height != 1 || p.IHDR.ColorType != 6 {
		t.Fatalf("ihdr = %+v", p.IHDR)
	}
	if len(p.DefaultImageData) == 0 {
		t.Fatalf("expected non-empty DefaultImageData")
	}
	inflated, err := Inflate(p.DefaultImageData)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(inflated, raw) {
		t.Fatalf("inflated = %v; want %v", inflated, raw)
	}
}

func TestParseRejectsBadSignature(t *testing.T) {
	if _, err := Parse(bytes.Repeat([]byte{0}, 40)); err == nil {
		t.Fatalf("expected error for bad signature")
	}
}

func TestParseDetectsCRCMismatch(t *testing.T) {
	data := buildMinimalPNG(t, zlibCompress(t, []byte{0, 1, 2, 3, 4}))
	// Corrupt a byte inside the IDAT chunk's payload.
	idx := bytes.Index(data, []byte("IDAT")) + 5
	data[idx] ^= 0xFF
	if _, err := Parse(data); err == nil {
		t.Fatalf("expected CRC mismatch error")
	}
}

func TestParseRejectsFcTLWithoutActl(t *testing.T) {
	var b []byte
	b = append(b, pngSignature[:]...)
	b = append(b, chunkBytes("IHDR", ihdrBytes(1, 1, 8, ColorTrueColorAlphaForTest, 0))...)
	fctl := make([]byte, 26)
	binary.BigEndian.PutUint32(fctl[4:8], 1)
	binary.BigEndian.PutUint32(fctl[8:12], 1)
	b = append(b, chunkBytes("fcTL", fctl)...)
	b = append(b, chunkBytes("IDAT", zlibCompress(t, []byte{0, 1, 2, 3, 4}))...)
	b = append(b, chunkBytes("IEND", nil)...)

	if _, err := Parse(b); err == nil {
		t.Fatalf("expected error for fcTL without a preceding acTL")
	}
}

func TestParseRejectsFdATWithoutActl(t *testing.T) {
	var b []byte
	b = append(b, pngSignature[:]...)
	b = append(b, chunkBytes("IHDR", ihdrBytes(1, 1, 8, ColorTrueColorAlphaForTest, 0))...)
	b = append(b, chunkBytes("IDAT", zlibCompress(t, []byte{0, 1, 2, 3, 4}))...)
	fdatPayload := append([]byte{0, 0, 0, 1}, zlibCompress(t, []byte{0, 1, 2, 3, 4})...)
	b = append(b, chunkBytes("fdAT", fdatPayload)...)
	b = append(b, chunkBytes("IEND", nil)...)

	if _, err := Parse(b); err == nil {
		t.Fatalf("expected error for fdAT without a preceding acTL")
	}
}

func TestParseRejectsIllegalColorTypeBitDepthCombo(t *testing.T) {
	var b []byte
	b = append(b, pngSignature[:]...)
	// color_type=3 (indexed) with bit_depth=16 is not one of PNG's 15
	// legal combinations (indexed tops out at 8 bits).
	b = append(b, chunkBytes("IHDR", ihdrBytes(1, 1, 16, 3, 0))...)
	b = append(b, chunkBytes("IDAT", zlibCompress(t, []byte{0, 0}))...)
	b = append(b, chunkBytes("IEND", nil)...)

	if _, err := Parse(b); err == nil {
		t.Fatalf("expected error for illegal color_type/bit_depth combination")
	}
}

func TestParseAnimatedPNGWithACTLAndFCTL(t *testing.T) {
	var b []byte
	b = append(b, pngSignature[:]...)
	b = append(b, chunkBytes("IHDR", ihdrBytes(1, 1, 8, ColorTrueColorAlphaForTest, 0))...)

	actl := make([]byte, 8)
	binary.BigEndian.PutUint32(actl[0:4], 2) // num_frames
	binary.BigEndian.PutUint32(actl[4:8], 0) // num_plays: infinite
	b = append(b, chunkBytes("acTL", actl)...)

	fctl0 := make([]byte, 26)
	binary.BigEndian.PutUint32(fctl0[0:4], 0)
	binary.BigEndian.PutUint32(fctl0[4:8], 1)
	binary.BigEndian.PutUint32(fctl0[8:12], 1)
	b = append(b, chunkBytes("fcTL", fctl0)...)

	raw := []byte{0, 1, 2, 3, 4}
	b = append(b, chunkBytes("IDAT", zlibCompress(t, raw))...)

	fctl1 := make([]byte, 26)
	binary.BigEndian.PutUint32(fctl1[0:4], 1)
	binary.BigEndian.PutUint32(fctl1[4:8], 1)
	binary.BigEndian.PutUint32(fctl1[8:12], 1)
	b = append(b, chunkBytes("fcTL", fctl1)...)

	fdatPayload := append([]byte{0, 0, 0, 2}, zlibCompress(t, raw)...) // sequence number + data
	b = append(b, chunkBytes("fdAT", fdatPayload)...)

	b = append(b, chunkBytes("IEND", nil)...)

	p, err := Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAnimated || p.NumFrames != 2 || p.LoopCount != 0 {
		t.Fatalf("p = %+v", p)
	}
	if !p.DefaultImageIsFirstFrame {
		t.Fatalf("expected default image to double as first frame")
	}
	if len(p.Frames) != 1 {
		t.Fatalf("frames = %d; want 1 (second fcTL/fdAT pair)", len(p.Frames))
	}
}
