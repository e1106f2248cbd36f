// Copyright 2023 The robomesh authors. All rights reserved.

package meshcat

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	_ "image/png" // capture responses are PNG
)

// Transport moves lowered commands to the viewer.
type Transport interface {
	// Send delivers one command.
	Send(c *Command) error

	// Capture asks the viewer for a rendered frame of the
	// given size.
	Capture(ctx context.Context, width, height int) (image.Image, error)

	// Close releases the transport. Sends after Close
	// report ErrClosed.
	Close() error
}

// ErrClosed reports use of a closed transport.
var ErrClosed = errors.New(prefix + "transport is closed")

// ErrNoViewer reports a capture with no attached viewer
// to render it.
var ErrNoViewer = errors.New(prefix + "no viewer attached")

// Client is a websocket Transport connected to a running
// relay or viewer bridge.
type Client struct {
	conn *websocket.Conn
	log  *zap.Logger

	wmu      sync.Mutex
	captures chan []byte
	done     chan struct{}
	closed   bool
}

// Connect dials the relay's publisher endpoint
// (ws://host:port/pub). log may be nil.
func Connect(url string, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:     conn,
		log:      log,
		captures: make(chan []byte, 1),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// readLoop drains the connection; the only messages the
// viewer sends back are capture responses.
func (c *Client) readLoop() {
	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug("viewer connection closed", zap.Error(err))
			close(c.done)
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		select {
		case c.captures <- msg:
		default:
			c.log.Warn("dropping unsolicited capture response")
		}
	}
}

// Send delivers one command.
func (c *Client) Send(cmd *Command) error {
	b, err := cmd.Encode()
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.conn.WriteMessage(websocket.BinaryMessage, b)
}

// Capture asks the viewer for a rendered frame.
func (c *Client) Capture(ctx context.Context, width, height int) (image.Image, error) {
	// A response to an earlier request that timed out must
	// not answer this one.
	select {
	case <-c.captures:
		c.log.Warn("discarding stale capture response")
	default:
	}
	if err := c.Send(CaptureImage(width, height)); err != nil {
		return nil, err
	}
	select {
	case b := <-c.captures:
		img, _, err := image.Decode(bytes.NewReader(b))
		return img, err
	case <-c.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close cleanly closes the connection.
func (c *Client) Close() error {
	c.wmu.Lock()
	if c.closed {
		c.wmu.Unlock()
		return nil
	}
	c.closed = true
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.wmu.Unlock()
	return c.conn.Close()
}

// Recorder is a Transport that keeps every command it is
// handed. It backs tests and offline use; captures return
// a flat gray frame so recording paths stay exercisable
// without a viewer.
type Recorder struct {
	mu   sync.Mutex
	cmds []*Command
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Send validates that c encodes and records it.
func (r *Recorder) Send(c *Command) error {
	if _, err := c.Encode(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, c)
	return nil
}

// Capture returns a flat gray frame of the requested size.
func (r *Recorder) Capture(ctx context.Context, width, height int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	gray := color.RGBA{R: 128, G: 128, B: 128, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, gray)
		}
	}
	return img, nil
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }

// Commands returns the recorded commands.
func (r *Recorder) Commands() []*Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Command(nil), r.cmds...)
}

// LastOfType returns the most recent command of the given
// type, or nil.
func (r *Recorder) LastOfType(typ string) *Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.cmds) - 1; i >= 0; i-- {
		if r.cmds[i].Type == typ {
			return r.cmds[i]
		}
	}
	return nil
}
