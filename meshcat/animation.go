// Copyright 2023 The robomesh authors. All rights reserved.

package meshcat

import (
	"sort"

	"github.com/robomesh/robomesh/linear"
)

// Track value types the viewer understands.
const (
	TypeNumber     = "number"
	TypeVector3    = "vector3"
	TypeQuaternion = "quaternion"
	TypeBoolean    = "boolean"
	TypeVector     = "vector"
)

// PathClip pairs a scene-tree path with its clip.
type PathClip struct {
	Path string `msgpack:"path"`
	Clip *Clip  `msgpack:"clip"`
}

// Clip is a set of keyframe tracks at a fixed frame rate.
type Clip struct {
	FPS    float64  `msgpack:"fps"`
	Name   string   `msgpack:"name"`
	Tracks []*Track `msgpack:"tracks"`
}

// Track holds the keyframes of one animated property.
type Track struct {
	Name string `msgpack:"name"`
	Type string `msgpack:"type"`
	Keys []Key  `msgpack:"keys"`
}

// Key is one keyframe. Time is the frame number; the clip
// frame rate converts it to seconds.
type Key struct {
	Time  float64 `msgpack:"time"`
	Value any     `msgpack:"value"`
}

// ClipOptions controls playback of a published animation.
type ClipOptions struct {
	Play        bool `msgpack:"play"`
	Repetitions int  `msgpack:"repetitions"`
}

// Animation accumulates per-path keyframe tracks and
// lowers them into one set_animation command.
type Animation struct {
	fps   float64
	order []Path
	paths map[Path]map[string]*Track
}

// NewAnimation creates an empty animation at the given
// frame rate.
func NewAnimation(fps float64) *Animation {
	return &Animation{
		fps:   fps,
		paths: make(map[Path]map[string]*Track),
	}
}

// FPS returns the animation frame rate.
func (a *Animation) FPS() float64 { return a.fps }

func (a *Animation) track(path Path, name, typ string) *Track {
	tracks := a.paths[path]
	if tracks == nil {
		tracks = make(map[string]*Track)
		a.paths[path] = tracks
		a.order = append(a.order, path)
	}
	t := tracks[name]
	if t == nil {
		t = &Track{Name: name, Type: typ}
		tracks[name] = t
	}
	return t
}

func (t *Track) set(frame int, value any) {
	time := float64(frame)
	// Rewriting a property within the same frame replaces
	// the key rather than duplicating it.
	if n := len(t.Keys); n > 0 && t.Keys[n-1].Time == time {
		t.Keys[n-1].Value = value
		return
	}
	t.Keys = append(t.Keys, Key{Time: time, Value: value})
}

// SetTransform records the pose of path at the given frame
// as position and quaternion keys.
func (a *Animation) SetTransform(frame int, path Path, m *linear.M4) {
	tr, q := m.TQ()
	a.track(path, "position", TypeVector3).set(frame, []float64{tr[0], tr[1], tr[2]})
	a.track(path, "quaternion", TypeQuaternion).set(frame, []float64{q.V[0], q.V[1], q.V[2], q.R})
}

// SetProperty records a property value of path at the
// given frame.
func (a *Animation) SetProperty(frame int, path Path, prop, typ string, value any) {
	a.track(path, prop, typ).set(frame, value)
}

// Command lowers the animation into a set_animation
// command rooted at path. Clips autoplay once.
func (a *Animation) Command(path Path) *Command {
	anims := make([]PathClip, 0, len(a.order))
	for _, p := range a.order {
		clip := &Clip{FPS: a.fps, Name: "default"}
		names := make([]string, 0, len(a.paths[p]))
		for name := range a.paths[p] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			t := a.paths[p][name]
			clip.Tracks = append(clip.Tracks, &Track{
				Name: "." + t.Name,
				Type: t.Type,
				Keys: t.Keys,
			})
		}
		anims = append(anims, PathClip{Path: string(p), Clip: clip})
	}
	return &Command{
		Type:       TSetAnimation,
		Path:       string(path),
		Animations: anims,
		Options:    &ClipOptions{Play: true, Repetitions: 1},
	}
}
