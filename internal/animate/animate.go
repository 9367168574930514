// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package animate assembles per-year frames into a looping GIF.
package animate

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	DefaultRepeatLast = 10
	DefaultFrameDelay = 500 * time.Millisecond
)

// ErrNoFrames is returned when there is nothing to animate.
var ErrNoFrames = errors.New("no frames to animate")

// Frame is one year of the animation.
type Frame struct {
	Year  int
	Image image.Image
}

// Assembler writes frame sequences as GIFs.
type Assembler struct {
	// RepeatLast extra copies of the final frame hold the finished network
	// on screen before the loop restarts.
	RepeatLast int
	FrameDelay time.Duration
}

// New returns an Assembler with the default hold and delay.
func New() *Assembler {
	return &Assembler{RepeatLast: DefaultRepeatLast, FrameDelay: DefaultFrameDelay}
}

// Assemble sorts frames by year and writes them to path as an endlessly
// looping GIF. An existing file at path is left untouched and reported as
// skipped.
func (a *Assembler) Assemble(frames []Frame, path string) (skipped bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil
	}
	if len(frames) == 0 {
		return false, ErrNoFrames
	}

	ordered := append([]Frame(nil), frames...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Year < ordered[j].Year })

	delay := int(a.FrameDelay / (10 * time.Millisecond))
	if delay <= 0 {
		delay = int(DefaultFrameDelay / (10 * time.Millisecond))
	}
	repeat := a.RepeatLast
	if repeat < 0 {
		repeat = 0
	}

	anim := &gif.GIF{LoopCount: 0}
	for _, f := range ordered {
		anim.Image = append(anim.Image, quantize(f.Image))
		anim.Delay = append(anim.Delay, delay)
	}
	last := anim.Image[len(anim.Image)-1]
	for i := 0; i < repeat; i++ {
		anim.Image = append(anim.Image, last)
		anim.Delay = append(anim.Delay, delay)
	}

	if err := writeGIF(path, anim); err != nil {
		return false, err
	}
	return false, nil
}

// quantize maps img onto the Plan 9 palette with Floyd-Steinberg
// dithering.
func quantize(img image.Image) *image.Paletted {
	if p, ok := img.(*image.Paletted); ok {
		return p
	}
	b := img.Bounds()
	p := image.NewPaletted(b, palette.Plan9)
	draw.FloydSteinberg.Draw(p, b, img, b.Min)
	return p
}

func writeGIF(path string, anim *gif.GIF) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".animation-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	encErr := gif.EncodeAll(tmp, anim)
	closeErr := tmp.Close()
	if encErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("encoding gif: %w", encErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
