package imaganim

import (
	"bytes"
	"errors"
	"testing"
)

func buildStaticGIF() []byte {
	var b []byte
	b = append(b, []byte("GIF89a")...)
	b = append(b, 2, 0, 2, 0, 0x80, 0, 0)
	b = append(b, 0, 0, 0, 255, 255, 255) // black, white
	b = append(b, 0x2C, 0, 0, 0, 0, 2, 0, 2, 0, 0)
	b = append(b, 2)
	// LZW payload content is irrelevant here: Probe only tokenizes the
	// container and never decompresses pixel data.
	b = append(b, 3, 0x8C, 0x2D, 0x05, 0)
	b = append(b, 0x3B)
	return b
}

func TestDecodeAnyRejectsUnknownSignature(t *testing.T) {
	if _, err := DecodeAny([]byte("not an image"), false); err == nil {
		t.Fatalf("expected error for unknown signature")
	}
}

func TestProbeRejectsUnknownSignature(t *testing.T) {
	if _, err := Probe([]byte("not an image")); err == nil {
		t.Fatalf("expected error for unknown signature")
	}
}

func TestProbeGIFReportsDimensionsWithoutDecodingPixels(t *testing.T) {
	data := buildStaticGIF()
	f, err := Probe(data)
	if err != nil {
		t.Fatal(err)
	}
	if f.Format != "gif" || f.Width != 2 || f.Height != 2 {
		t.Fatalf("features = %+v", f)
	}
}

func TestFrameImageSharesUnderlyingBytes(t *testing.T) {
	fr := Frame{RGBA: []byte{1, 2, 3, 4}}
	img := fr.Image(1, 1)
	img.Pix[0] = 9
	if fr.RGBA[0] != 9 {
		t.Fatalf("Frame.Image should share the backing slice")
	}
}

func TestDecodeErrorUnwraps(t *testing.T) {
	_, err := DecodeAny(bytes.Repeat([]byte{0}, 2), false)
	if err == nil {
		t.Fatalf("expected error for too-short input")
	}
	de, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.Kind != KindUnknownFormat {
		t.Fatalf("kind = %v; want KindUnknownFormat", de.Kind)
	}
	if !errors.Is(err, errUnknownSignature) {
		t.Fatalf("errors.Is(err, errUnknownSignature) = false; want the cause reachable through Unwrap")
	}
}
