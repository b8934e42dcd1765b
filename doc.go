// Package imaganim decodes GIF (including animated GIF) and PNG/APNG
// images into a single uniform in-memory representation: an ordered list
// of fully composited RGBA frames with per-frame display durations.
//
// Both formats are decoded down through the same pipeline shape: a
// container tokenizer (internal/gifformat, internal/pngformat) splits the
// raw bytes into blocks/chunks without touching pixels, a format-specific
// image decoder (internal/gifimage, internal/pngimage) turns each block's
// compressed payload into a raw RGBA rectangle, and internal/compositor
// applies that rectangle's disposal and blend method to a persistent
// canvas to produce the next visible frame.
//
// Basic usage for decoding:
//
//	anim, err := imaganim.DecodeAny(data, false)
package imaganim
