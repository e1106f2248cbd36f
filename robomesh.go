// Copyright 2023 The robomesh authors. All rights reserved.

// Package robomesh visualizes rigid objects, articulated
// robots and parametric human meshes in an external
// web-based 3D viewer.
//
// The package keeps a named registry of entities (Scene)
// and forwards their state to the viewer over a local
// websocket transport. Rendering happens in the viewer;
// this side only owns poses, materials, joint
// configurations and morph influences, plus scoped
// animation and video-recording sessions.
package robomesh

import (
	"errors"
)

// Entity is anything a Scene can hold: an Object, a Robot
// or a Human.
type Entity interface {
	// Name returns the registry name. Names are unique per
	// scene; re-adding a name replaces the holder.
	Name() string

	// leafObjects returns the renderable objects of the
	// entity, in display order.
	leafObjects() []*Object

	// refresh recomputes derived state, such as forward
	// transforms, before a flush.
	refresh() error
}

// Session misuse errors.
var (
	// ErrAnimating reports a second session started, or an
	// operation that is not allowed while animating.
	ErrAnimating = errors.New("robomesh: animation session in progress")

	// ErrRecording reports a nested video session.
	ErrRecording = errors.New("robomesh: video session in progress")
)
