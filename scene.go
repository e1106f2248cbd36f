// Copyright 2023 The robomesh authors. All rights reserved.

package robomesh

import (
	"context"
	"errors"
	"image"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/robomesh/robomesh/kinematics"
	"github.com/robomesh/robomesh/linear"
	"github.com/robomesh/robomesh/meshcat"
	"github.com/robomesh/robomesh/video"
)

// Scene is an ordered, named registry of entities mirrored
// into the viewer. One render call pushes the current
// state; scoped sessions redirect renders into animation
// frames or video frames instead.
type Scene struct {
	log *zap.Logger
	tr  meshcat.Transport

	srv     *meshcat.Server
	httpSrv *http.Server
	addr    string

	names    []string
	entities map[string]Entity

	cameraPose linear.M4
	cameraZoom float64

	captureW, captureH int
	captureTimeout     time.Duration

	anim *animSession
	enc  video.Encoder
}

type animSession struct {
	anim  *meshcat.Animation
	frame int
}

type sceneConfig struct {
	log       *zap.Logger
	tr        meshcat.Transport
	addr      string
	staticDir string
	captureW  int
	captureH  int
}

// SceneOption configures a Scene at construction.
type SceneOption func(*sceneConfig)

// WithTransport uses an existing transport instead of
// hosting a relay.
func WithTransport(tr meshcat.Transport) SceneOption {
	return func(c *sceneConfig) { c.tr = tr }
}

// WithLogger sets the logger. The default discards.
func WithLogger(log *zap.Logger) SceneOption {
	return func(c *sceneConfig) { c.log = log }
}

// WithAddress sets the listen address of the hosted relay.
func WithAddress(addr string) SceneOption {
	return func(c *sceneConfig) { c.addr = addr }
}

// WithViewerDir serves the viewer page from dir.
func WithViewerDir(dir string) SceneOption {
	return func(c *sceneConfig) { c.staticDir = dir }
}

// WithCaptureSize sets the resolution of captured frames.
func WithCaptureSize(width, height int) SceneOption {
	return func(c *sceneConfig) { c.captureW, c.captureH = width, height }
}

// NewScene creates a scene. Without WithTransport it hosts
// a viewer relay on the configured address.
func NewScene(opts ...SceneOption) (*Scene, error) {
	c := sceneConfig{
		addr:     "127.0.0.1:7010",
		captureW: 640,
		captureH: 480,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	s := &Scene{
		log:            c.log,
		tr:             c.tr,
		entities:       make(map[string]Entity),
		cameraZoom:     1,
		captureW:       c.captureW,
		captureH:       c.captureH,
		captureTimeout: 5 * time.Second,
	}
	s.cameraPose.I()
	if s.tr == nil {
		srv := meshcat.NewServer(c.log)
		ln, err := net.Listen("tcp", c.addr)
		if err != nil {
			return nil, err
		}
		s.srv = srv
		s.addr = ln.Addr().String()
		s.httpSrv = &http.Server{Handler: srv.Handler(c.staticDir)}
		go s.httpSrv.Serve(ln)
		s.tr = srv
		s.log.Info("viewer relay listening", zap.String("url", s.URL()))
	}

	// White background, not the viewer's default gradient.
	white := []float64{1, 1, 1}
	for _, prop := range []string{"top_color", "bottom_color"} {
		if err := s.tr.Send(meshcat.SetProperty(meshcat.PathBackground, prop, white)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// URL returns the address of the hosted relay, or "" when
// an external transport is used.
func (s *Scene) URL() string {
	if s.addr == "" {
		return ""
	}
	return "http://" + s.addr
}

// Close shuts down the transport and, when hosted, the
// relay.
func (s *Scene) Close() error {
	err := s.tr.Close()
	if s.httpSrv != nil {
		if cerr := s.httpSrv.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *Scene) animating() bool { return s.anim != nil }

// Add puts e into the registry and publishes it. A name
// collision replaces the previous holder, keeping its
// display position. Adding while animating is refused:
// frames recorded so far could not contain the entity.
func (s *Scene) Add(e Entity) error {
	if s.animating() {
		s.log.Warn("cannot add entities while animating; add everything before the session",
			zap.String("name", e.Name()))
		return ErrAnimating
	}
	name := e.Name()
	if old, ok := s.entities[name]; ok {
		s.log.Warn("an entity with the same name is already in the scene, replacing it",
			zap.String("name", name))
		for _, o := range old.leafObjects() {
			o.scene = nil
		}
		if err := s.tr.Send(meshcat.Delete(meshcat.SceneRoot.Append(name))); err != nil {
			return err
		}
	} else {
		s.names = append(s.names, name)
	}
	s.entities[name] = e
	for _, o := range e.leafObjects() {
		o.scene = s
	}
	return s.publish(e)
}

// Remove takes e out of the registry and deletes its
// subtree in the viewer. Removing while animating is
// refused.
func (s *Scene) Remove(e Entity) error {
	if s.animating() {
		s.log.Warn("cannot remove entities while animating",
			zap.String("name", e.Name()))
		return ErrAnimating
	}
	name := e.Name()
	if s.entities[name] != e {
		return nil
	}
	delete(s.entities, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
	for _, o := range e.leafObjects() {
		o.scene = nil
	}
	return s.tr.Send(meshcat.Delete(meshcat.SceneRoot.Append(name)))
}

// Clear removes every entity.
func (s *Scene) Clear() error {
	for _, e := range s.Entities() {
		if err := s.Remove(e); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the named entity, or nil.
func (s *Scene) Get(name string) Entity {
	return s.entities[name]
}

// Entities returns the registry in display order.
func (s *Scene) Entities() []Entity {
	out := make([]Entity, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.entities[n])
	}
	return out
}

// Len returns the number of entities.
func (s *Scene) Len() int { return len(s.names) }

// publish sends the full state of e.
func (s *Scene) publish(e Entity) error {
	if err := s.refreshEntity(e); err != nil {
		return err
	}
	for _, o := range e.leafObjects() {
		obj, err := o.build()
		if err != nil {
			return err
		}
		if err := s.tr.Send(meshcat.SetObject(o.path(), obj)); err != nil {
			return err
		}
		if err := s.tr.Send(meshcat.SetTransform(o.path(), &o.pose)); err != nil {
			return err
		}
		if err := s.sendProps(o); err != nil {
			return err
		}
		o.dirtyObject, o.dirtyProps = false, false
	}
	return nil
}

func (s *Scene) sendProps(o *Object) error {
	if err := s.tr.Send(meshcat.SetProperty(o.path(), "visible", o.visible)); err != nil {
		return err
	}
	if len(o.influences) > 0 {
		inf := append([]float64(nil), o.influences...)
		if err := s.tr.Send(meshcat.SetProperty(o.path(), "morphTargetInfluences", inf)); err != nil {
			return err
		}
	}
	return nil
}

// refreshEntity recomputes derived state. Limit violations
// are logged; the entity still carries usable clamped
// poses.
func (s *Scene) refreshEntity(e Entity) error {
	err := e.refresh()
	var le *kinematics.LimitError
	if errors.As(err, &le) {
		s.log.Warn("joint value clamped to limits",
			zap.String("name", e.Name()),
			zap.String("joint", le.Joint),
			zap.Float64("value", le.Value))
		return nil
	}
	return err
}

// Camera state.

// CameraPose returns the camera pose.
func (s *Scene) CameraPose() linear.M4 { return s.cameraPose }

// SetCameraPose replaces the camera pose. An identity pose
// restores the viewer's default orbiting camera.
func (s *Scene) SetCameraPose(m *linear.M4) { s.cameraPose = *m }

// SetCameraPos replaces the translation part of the camera
// pose.
func (s *Scene) SetCameraPos(p *linear.V3) { s.cameraPose.SetTranslation(p) }

// SetCameraRot replaces the rotation part of the camera
// pose.
func (s *Scene) SetCameraRot(m *linear.M3) { s.cameraPose.SetRotation(m) }

// CameraZoom returns the camera zoom.
func (s *Scene) CameraZoom() float64 { return s.cameraZoom }

// SetCameraZoom replaces the camera zoom.
func (s *Scene) SetCameraZoom(zoom float64) { s.cameraZoom = zoom }

// ResetCamera restores the default camera.
func (s *Scene) ResetCamera() {
	s.cameraPose.I()
	s.cameraZoom = 1
}

// cameraObjPos returns the orbit position of the camera
// object. With an identity pose the viewer's default orbit
// position gives a usable view; a deliberate pose pins the
// camera at its own origin.
func (s *Scene) cameraObjPos() []float64 {
	if s.cameraPose.NearIdentity(1e-9) {
		return []float64{3, 1, 0}
	}
	return []float64{0, 0, 0}
}

// Render pushes the current scene state: to the viewer
// when online, into the open frame when animating. With an
// open video session one frame is captured and appended.
func (s *Scene) Render() error {
	if s.animating() {
		if err := s.recordFrame(); err != nil {
			return err
		}
		s.anim.frame++
		return nil
	}
	return s.flushLive()
}

// recordFrame writes the current state into the open
// animation frame.
func (s *Scene) recordFrame() error {
	a, frame := s.anim.anim, s.anim.frame
	for _, e := range s.Entities() {
		if err := s.refreshEntity(e); err != nil {
			return err
		}
		for _, o := range e.leafObjects() {
			a.SetTransform(frame, o.path(), &o.pose)
			if o.dirtyProps {
				a.SetProperty(frame, o.path(), "visible", meshcat.TypeBoolean, o.visible)
				if len(o.influences) > 0 {
					inf := append([]float64(nil), o.influences...)
					a.SetProperty(frame, o.path(), "morphTargetInfluences", meshcat.TypeVector, inf)
				}
				o.dirtyProps = false
			}
		}
	}
	a.SetTransform(frame, meshcat.PathCamera, &s.cameraPose)
	a.SetProperty(frame, meshcat.PathCameraObj, "position", meshcat.TypeVector3, s.cameraObjPos())
	a.SetProperty(frame, meshcat.PathCameraObj, "zoom", meshcat.TypeNumber, s.cameraZoom)
	return nil
}

// flushLive pushes the current state to the viewer.
func (s *Scene) flushLive() error {
	for _, e := range s.Entities() {
		if err := s.refreshEntity(e); err != nil {
			return err
		}
		for _, o := range e.leafObjects() {
			if o.dirtyObject {
				obj, err := o.build()
				if err != nil {
					return err
				}
				if err := s.tr.Send(meshcat.SetObject(o.path(), obj)); err != nil {
					return err
				}
				o.dirtyObject = false
			}
			if err := s.tr.Send(meshcat.SetTransform(o.path(), &o.pose)); err != nil {
				return err
			}
			if o.dirtyProps {
				if err := s.sendProps(o); err != nil {
					return err
				}
				o.dirtyProps = false
			}
		}
	}
	if err := s.tr.Send(meshcat.SetTransform(meshcat.PathCamera, &s.cameraPose)); err != nil {
		return err
	}
	if err := s.tr.Send(meshcat.SetProperty(meshcat.PathCameraObj, "position", s.cameraObjPos())); err != nil {
		return err
	}
	if err := s.tr.Send(meshcat.SetProperty(meshcat.PathCameraObj, "zoom", s.cameraZoom)); err != nil {
		return err
	}
	if s.enc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.captureTimeout)
		img, err := s.tr.Capture(ctx, s.captureW, s.captureH)
		cancel()
		if err != nil {
			return err
		}
		if err := s.enc.Append(img); err != nil {
			return err
		}
	}
	return nil
}

// RenderImage captures the viewer's current frame.
func (s *Scene) RenderImage(ctx context.Context) (image.Image, error) {
	return s.tr.Capture(ctx, s.captureW, s.captureH)
}

// Animation runs fn inside an animation session. Frame 0
// is open on entry; Render records the current state into
// the open frame and advances. Renders inside the session
// never touch the live viewer. On a nil error from fn the
// final frame is flushed and the accumulated clips are
// published as one animation that plays immediately.
func (s *Scene) Animation(fps float64, fn func() error) error {
	if s.animating() {
		return ErrAnimating
	}
	s.anim = &animSession{anim: meshcat.NewAnimation(fps)}
	// Close the session even when fn panics.
	defer func() { s.anim = nil }()
	if err := fn(); err != nil {
		return err
	}
	if err := s.recordFrame(); err != nil {
		return err
	}
	return s.tr.Send(s.anim.anim.Command(meshcat.PathAnimations))
}

// VideoRecording runs fn inside a video session: every
// Render captures one frame and appends it to the encoder.
// An empty filename records to <tmpdir>/<timestamp>.mp4.
// Encoder failures end the session through the returned
// error; the process is unaffected.
func (s *Scene) VideoRecording(filename string, fps float64, fn func() error) (err error) {
	if s.animating() {
		return ErrAnimating
	}
	if s.enc != nil {
		return ErrRecording
	}
	if filename == "" {
		filename = filepath.Join(os.TempDir(), time.Now().Format("20060102_150405")+".mp4")
	}
	enc, err := video.NewEncoder(filename, fps, s.log)
	if err != nil {
		return err
	}
	s.enc = enc
	s.log.Info("recording video", zap.String("file", filename), zap.Float64("fps", fps))
	// Close the session even when fn panics.
	defer func() {
		s.enc = nil
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}()
	return fn()
}
