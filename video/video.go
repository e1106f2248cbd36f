// Copyright 2023 The robomesh authors. All rights reserved.

// Package video writes captured viewer frames to disk.
// Encoding itself stays external: the default encoder
// pipes raw frames into an ffmpeg subprocess. A pure-Go
// GIF encoder exists for environments without ffmpeg.
package video

import (
	"image"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const prefix = "video: "

// Encoder consumes frames of a fixed size one by one.
type Encoder interface {
	// Append encodes one frame. Every frame must have the
	// dimensions of the first.
	Append(img image.Image) error

	// Close flushes and finalizes the output file.
	Close() error
}

// NewEncoder picks an encoder for filename: .gif gets the
// built-in GIF encoder, everything else goes through
// ffmpeg. log may be nil.
func NewEncoder(filename string, fps float64, log *zap.Logger) (Encoder, error) {
	if strings.ToLower(filepath.Ext(filename)) == ".gif" {
		return NewGIF(filename, fps)
	}
	return NewFFmpeg(filename, fps, log)
}
