// Copyright 2023 The robomesh authors. All rights reserved.

package video

import (
	"errors"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
)

// GIF encodes frames into an animated GIF. Frames are
// quantized and held in memory until Close.
type GIF struct {
	filename string
	delay    int
	frames   []*image.Paletted
}

// NewGIF creates an encoder writing to filename.
func NewGIF(filename string, fps float64) (*GIF, error) {
	if fps <= 0 {
		return nil, errors.New(prefix + "frame rate must be positive")
	}
	delay := int(100/fps + 0.5)
	if delay < 1 {
		delay = 1
	}
	return &GIF{filename: filename, delay: delay}, nil
}

// Append quantizes and stores one frame.
func (g *GIF) Append(img image.Image) error {
	b := img.Bounds()
	if len(g.frames) > 0 && b.Size() != g.frames[0].Bounds().Size() {
		return errors.New(prefix + "frame size changed mid stream")
	}
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, b.Min)
	g.frames = append(g.frames, p)
	return nil
}

// Close writes the accumulated frames out.
func (g *GIF) Close() error {
	if len(g.frames) == 0 {
		return errors.New(prefix + "no frames recorded")
	}
	out := &gif.GIF{}
	for _, f := range g.frames {
		out.Image = append(out.Image, f)
		out.Delay = append(out.Delay, g.delay)
	}
	file, err := os.Create(g.filename)
	if err != nil {
		return err
	}
	if err := gif.EncodeAll(file, out); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
