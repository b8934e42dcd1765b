// Command imaganiminfo prints the format, dimensions, animation status,
// and frame count of a GIF or PNG/APNG file without decoding any pixels.
// With -full it decodes and composites every frame instead and prints the
// dimensions, loop count, frame count, and each frame's duration.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/deepteams/imaganim"
)

func main() {
	full := flag.Bool("full", false, "fully decode and composite every frame instead of just probing the header")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: imaganiminfo [-full] <file.gif|file.png>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *full); err != nil {
		fmt.Fprintln(os.Stderr, "imaganiminfo:", err)
		os.Exit(1)
	}
}

func run(path string, full bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := imaganim.ReadAll(f)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	if !full {
		features, err := imaganim.Probe(data)
		if err != nil {
			return err
		}
		fmt.Printf("format=%s size=%dx%d animated=%v frames=%d\n",
			features.Format, features.Width, features.Height, features.IsAnimated, features.FrameCount)
		return nil
	}

	anim, err := imaganim.DecodeAny(data, false)
	if err != nil {
		return err
	}
	fmt.Printf("size=%dx%d loopCount=%d frames=%d\n", anim.Width, anim.Height, anim.LoopCount, len(anim.Frames))
	for i, fr := range anim.Frames {
		fmt.Printf("  frame %d: duration=%s\n", i, fr.Duration)
	}
	return nil
}
