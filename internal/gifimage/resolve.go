package gifimage

// ResolveRGBA expands a palette-index buffer into row-major RGBA bytes.
// transparentIndex, when non-nil, names the palette entry that should be
// written fully transparent (alpha 0) rather than looked up in palette;
// the RGB channels for a transparent pixel are left zeroed since the
// compositor never reads them for an uncovered pixel.
func ResolveRGBA(indices []byte, palette []byte, transparentIndex *uint8) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		o := i * 4
		if transparentIndex != nil && idx == *transparentIndex {
			continue // already zero value, alpha 0
		}
		p := int(idx) * 3
		if p+2 >= len(palette) {
			continue
		}
		out[o] = palette[p]
		out[o+1] = palette[p+1]
		out[o+2] = palette[p+2]
		out[o+3] = 0xff
	}
	return out
}
