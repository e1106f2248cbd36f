// Copyright 2023 The robomesh authors. All rights reserved.

package meshcat

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// Server relays commands to attached viewer pages. It
// caches the latest tree state so late joiners see the
// current scene, and it is itself a Transport so a scene
// can publish through it in process.
type Server struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	viewers    map[*viewer]struct{}
	objects    map[Path][]byte
	transforms map[Path][]byte
	props      map[Path]map[string][]byte
	anims      map[Path][]byte
	pending    []*publisher
	closed     bool

	captures chan []byte
}

// viewer is one attached browser page.
type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// NewServer creates a relay. log may be nil.
func NewServer(log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		viewers:    make(map[*viewer]struct{}),
		objects:    make(map[Path][]byte),
		transforms: make(map[Path][]byte),
		props:      make(map[Path]map[string][]byte),
		anims:      make(map[Path][]byte),
		captures:   make(chan []byte, 1),
	}
}

// Handler returns the HTTP handler for the relay. The
// websocket endpoint is /ws; if staticDir is non-empty it
// is served at /, otherwise a placeholder page is.
func (s *Server) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/pub", s.servePub)
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(placeholderPage))
		})
	}
	return mux
}

const placeholderPage = `<!DOCTYPE html>
<html><head><title>robomesh</title></head>
<body><p>robomesh relay is running. Point a meshcat viewer at ws://&lt;host&gt;/ws.</p></body></html>
`

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	v := &viewer{conn: conn, send: make(chan []byte, 256)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.viewers[v] = struct{}{}
	replay := s.snapshotLocked()
	s.mu.Unlock()

	s.log.Info("viewer attached", zap.String("remote", r.RemoteAddr))

	// The replay goes out before the write loop starts, so
	// commands broadcast meanwhile queue up behind it.
	for _, b := range replay {
		if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
			s.detach(v)
			return
		}
	}
	go s.writeLoop(v)
	go s.readLoop(v)
}

// servePub accepts a publisher from another process. The
// publisher gets no replay; its messages are commands to
// cache and broadcast, and capture responses are routed
// back to it in request order.
func (s *Server) servePub(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s.log.Info("publisher attached", zap.String("remote", r.RemoteAddr))
	p := &publisher{conn: conn}
	for {
		typ, msg, err := conn.ReadMessage()
		if err != nil {
			s.dropPending(p)
			conn.Close()
			s.log.Info("publisher detached")
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		c, err := DecodeCommand(msg)
		if err != nil || c.Type == TSetObject {
			// set_object payloads only lower, never lift;
			// relay them from the raw bytes.
			var h struct {
				Type string `msgpack:"type"`
				Path string `msgpack:"path"`
			}
			if err := msgpack.Unmarshal(msg, &h); err != nil {
				s.log.Warn("dropping malformed command", zap.Error(err))
				continue
			}
			c = &Command{Type: h.Type, Path: h.Path}
			s.relay(c, msg)
			continue
		}
		if c.Type == TCaptureImage {
			s.mu.Lock()
			s.pending = append(s.pending, p)
			s.mu.Unlock()
		}
		s.relay(c, msg)
	}
}

// publisher is one attached publishing process.
type publisher struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (p *publisher) write(b []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	return p.conn.WriteMessage(websocket.BinaryMessage, b)
}

func (s *Server) dropPending(p *publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.pending[:0]
	for _, q := range s.pending {
		if q != p {
			kept = append(kept, q)
		}
	}
	s.pending = kept
}

// relay caches and broadcasts an already encoded command.
func (s *Server) relay(c *Command, b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cacheLocked(c, b)
	for v := range s.viewers {
		select {
		case v.send <- b:
		default:
			s.log.Warn("viewer send buffer full, dropping command",
				zap.String("type", c.Type), zap.String("path", c.Path))
		}
	}
}

// snapshotLocked builds the replay for a new viewer:
// objects, then transforms, then properties, then
// animations, each in stable path order.
func (s *Server) snapshotLocked() [][]byte {
	var out [][]byte
	for _, p := range sortedPaths(s.objects) {
		out = append(out, s.objects[p])
	}
	for _, p := range sortedPaths(s.transforms) {
		out = append(out, s.transforms[p])
	}
	pp := make([]Path, 0, len(s.props))
	for p := range s.props {
		pp = append(pp, p)
	}
	sort.Slice(pp, func(i, j int) bool { return pp[i] < pp[j] })
	for _, p := range pp {
		props := s.props[p]
		names := make([]string, 0, len(props))
		for n := range props {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			out = append(out, props[n])
		}
	}
	for _, p := range sortedPaths(s.anims) {
		out = append(out, s.anims[p])
	}
	return out
}

func sortedPaths(m map[Path][]byte) []Path {
	pp := make([]Path, 0, len(m))
	for p := range m {
		pp = append(pp, p)
	}
	sort.Slice(pp, func(i, j int) bool { return pp[i] < pp[j] })
	return pp
}

func (s *Server) writeLoop(v *viewer) {
	for b := range v.send {
		if err := v.conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
			s.detach(v)
			return
		}
	}
	v.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	v.conn.Close()
}

// readLoop receives capture responses from the viewer.
func (s *Server) readLoop(v *viewer) {
	for {
		typ, msg, err := v.conn.ReadMessage()
		if err != nil {
			s.detach(v)
			return
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		// Capture responses go to the publisher that asked,
		// else to an in-process Capture call.
		s.mu.Lock()
		var p *publisher
		if len(s.pending) > 0 {
			p = s.pending[0]
			s.pending = s.pending[1:]
		}
		s.mu.Unlock()
		if p != nil {
			if err := p.write(msg); err != nil {
				s.log.Warn("capture response delivery failed", zap.Error(err))
			}
			continue
		}
		select {
		case s.captures <- msg:
		default:
			s.log.Warn("dropping unsolicited capture response")
		}
	}
}

func (s *Server) detach(v *viewer) {
	s.mu.Lock()
	_, ok := s.viewers[v]
	if ok {
		delete(s.viewers, v)
		close(v.send)
	}
	s.mu.Unlock()
	if ok {
		v.conn.Close()
		s.log.Info("viewer detached")
	}
}

// Viewers reports the number of attached viewer pages.
func (s *Server) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

// Send caches c and broadcasts it to every viewer.
func (s *Server) Send(c *Command) error {
	b, err := c.Encode()
	if err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	s.relay(c, b)
	return nil
}

// cacheLocked keeps the latest state per tree path so late
// joiners can be brought up to date.
func (s *Server) cacheLocked(c *Command, b []byte) {
	p := Path(c.Path)
	switch c.Type {
	case TSetObject:
		s.objects[p] = b
	case TSetTransform:
		s.transforms[p] = b
	case TSetProperty:
		s.props[p] = propSet(s.props[p], c.Property, b)
	case TSetAnimation:
		s.anims[p] = b
	case TDelete:
		deletePrefix(s.objects, p)
		deletePrefix(s.transforms, p)
		deletePrefix(s.anims, p)
		for q := range s.props {
			if q.HasPrefix(p) {
				delete(s.props, q)
			}
		}
	}
}

func propSet(m map[string][]byte, name string, b []byte) map[string][]byte {
	if m == nil {
		m = make(map[string][]byte)
	}
	m[name] = b
	return m
}

func deletePrefix(m map[Path][]byte, p Path) {
	for q := range m {
		if q.HasPrefix(p) {
			delete(m, q)
		}
	}
}

// Capture forwards a capture request and waits for the
// next frame a viewer sends back. It fails immediately
// when no viewer is attached.
func (s *Server) Capture(ctx context.Context, width, height int) (image.Image, error) {
	s.mu.Lock()
	n := len(s.viewers)
	s.mu.Unlock()
	if n == 0 {
		return nil, ErrNoViewer
	}
	// A response to an earlier request that timed out must
	// not answer this one.
	select {
	case <-s.captures:
		s.log.Warn("discarding stale capture response")
	default:
	}
	if err := s.Send(CaptureImage(width, height)); err != nil {
		return nil, err
	}
	select {
	case b := <-s.captures:
		img, _, err := image.Decode(bytes.NewReader(b))
		return img, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close detaches every viewer and rejects further sends.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	vv := make([]*viewer, 0, len(s.viewers))
	for v := range s.viewers {
		vv = append(vv, v)
		delete(s.viewers, v)
	}
	s.mu.Unlock()
	for _, v := range vv {
		close(v.send)
	}
	return nil
}
