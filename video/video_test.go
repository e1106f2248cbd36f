// Copyright 2023 The robomesh authors. All rights reserved.

package video

import (
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncoderDispatch(t *testing.T) {
	e, err := NewEncoder(filepath.Join(t.TempDir(), "out.gif"), 30, nil)
	require.NoError(t, err)
	assert.IsType(t, &GIF{}, e)

	e, err = NewEncoder(filepath.Join(t.TempDir(), "out.mp4"), 30, nil)
	require.NoError(t, err)
	assert.IsType(t, &FFmpeg{}, e)
}

func TestBadFrameRate(t *testing.T) {
	_, err := NewGIF("out.gif", 0)
	assert.Error(t, err)
	_, err = NewFFmpeg("out.mp4", -1, nil)
	assert.Error(t, err)
}

func TestGIFRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "out.gif")
	g, err := NewGIF(name, 10)
	require.NoError(t, err)

	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), A: 255})
		}
	}
	require.NoError(t, g.Append(img))
	require.NoError(t, g.Append(img))
	require.NoError(t, g.Close())

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	out, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, out.Image, 2)
	assert.Equal(t, 8, out.Image[0].Bounds().Dx())
	assert.Equal(t, 6, out.Image[0].Bounds().Dy())
	assert.Equal(t, 10, out.Delay[0])
}

func TestGIFFrameSizeChange(t *testing.T) {
	g, err := NewGIF(filepath.Join(t.TempDir(), "out.gif"), 10)
	require.NoError(t, err)
	require.NoError(t, g.Append(image.NewRGBA(image.Rect(0, 0, 8, 6))))
	assert.Error(t, g.Append(image.NewRGBA(image.Rect(0, 0, 4, 4))))
}

func TestGIFEmpty(t *testing.T) {
	g, err := NewGIF(filepath.Join(t.TempDir(), "out.gif"), 10)
	require.NoError(t, err)
	assert.Error(t, g.Close())
}

func TestEvenDim(t *testing.T) {
	assert.Equal(t, 640, evenDim(641))
	assert.Equal(t, 640, evenDim(640))
	assert.Equal(t, 2, evenDim(1))
	assert.Equal(t, 2, evenDim(0))
}
