// Copyright 2023 The robomesh authors. All rights reserved.

package video

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"
)

// FFmpeg pipes raw RGBA frames into an ffmpeg subprocess.
// The subprocess starts on the first frame, which fixes
// the video dimensions.
type FFmpeg struct {
	filename string
	fps      float64
	log      *zap.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	w, h  int
	frame *image.RGBA
}

// NewFFmpeg creates an encoder writing to filename.
// Failures to start or run ffmpeg surface from Append and
// Close. log may be nil.
func NewFFmpeg(filename string, fps float64, log *zap.Logger) (*FFmpeg, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if fps <= 0 {
		return nil, errors.New(prefix + "frame rate must be positive")
	}
	return &FFmpeg{filename: filename, fps: fps, log: log}, nil
}

func (f *FFmpeg) start(w, h int) error {
	f.w, f.h = w, h
	f.frame = image.NewRGBA(image.Rect(0, 0, w, h))
	size := strconv.Itoa(w) + "x" + strconv.Itoa(h)
	fps := strconv.FormatFloat(f.fps, 'f', -1, 64)
	f.cmd = exec.Command("ffmpeg",
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", size,
		"-framerate", fps,
		"-i", "-",
		"-pix_fmt", "yuv420p",
		f.filename,
	)
	f.cmd.Stderr = &f.stderr
	stdin, err := f.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf(prefix+"%w", err)
	}
	f.stdin = stdin
	if err := f.cmd.Start(); err != nil {
		return fmt.Errorf(prefix+"starting ffmpeg: %w", err)
	}
	f.log.Debug("ffmpeg started",
		zap.String("file", f.filename), zap.String("size", size))
	return nil
}

// Append encodes one frame. The first frame fixes the
// output size, rounded down to even dimensions as the
// pixel format requires; later frames are scaled to it.
func (f *FFmpeg) Append(img image.Image) error {
	if f.cmd == nil {
		b := img.Bounds()
		w, h := evenDim(b.Dx()), evenDim(b.Dy())
		if err := f.start(w, h); err != nil {
			return err
		}
	}
	xdraw.ApproxBiLinear.Scale(f.frame, f.frame.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	if _, err := f.stdin.Write(f.frame.Pix); err != nil {
		return f.fail(err)
	}
	return nil
}

// Close flushes the stream and waits for ffmpeg to finish
// the file.
func (f *FFmpeg) Close() error {
	if f.cmd == nil {
		return nil
	}
	if err := f.stdin.Close(); err != nil {
		return f.fail(err)
	}
	if err := f.cmd.Wait(); err != nil {
		return f.fail(err)
	}
	f.log.Info("video written", zap.String("file", f.filename))
	return nil
}

// fail wraps err with the tail of ffmpeg's diagnostics.
func (f *FFmpeg) fail(err error) error {
	tail := f.stderr.Bytes()
	if len(tail) > 512 {
		tail = tail[len(tail)-512:]
	}
	if len(tail) == 0 {
		return fmt.Errorf(prefix+"ffmpeg: %w", err)
	}
	return fmt.Errorf(prefix+"ffmpeg: %w: %s", err, bytes.TrimSpace(tail))
}

// evenDim rounds d down to an even value, at least 2.
func evenDim(d int) int {
	d &^= 1
	if d < 2 {
		return 2
	}
	return d
}
