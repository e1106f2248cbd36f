// Copyright 2023 The robomesh authors. All rights reserved.

// Package meshcat speaks the wire protocol of the external
// web-based 3D viewer.
//
// The viewer owns rendering and the scene tree; this package
// only lowers objects, transforms, properties and animation
// clips into the msgpack commands the viewer understands and
// moves them over a local websocket transport. A small relay
// (Server) is included so detached browser viewers can attach
// and receive the current tree.
package meshcat

import (
	"strings"
)

// Path addresses a node in the viewer's scene tree.
// Entities created by this library live under "meshcat/";
// viewer controls use rooted paths such as "/Background"
// and "/Cameras/default".
type Path string

// Root paths of viewer controls.
const (
	PathBackground Path = "/Background"
	PathCamera     Path = "/Cameras/default"
	PathCameraObj  Path = "/Cameras/default/rotated/<object>"
)

// PathAnimations is where published clips live.
const PathAnimations Path = "meshcat/animations/animation"

// SceneRoot is the subtree that holds library entities.
const SceneRoot Path = "meshcat"

// Append returns p extended with the given elements.
// Elements are cleaned of path separators.
func (p Path) Append(elems ...string) Path {
	parts := []string{string(p)}
	for _, e := range elems {
		e = strings.Trim(e, "/")
		if e != "" {
			parts = append(parts, e)
		}
	}
	return Path(strings.Join(parts, "/"))
}

// HasPrefix returns whether p is q or a descendant of q.
func (p Path) HasPrefix(q Path) bool {
	if p == q {
		return true
	}
	return strings.HasPrefix(string(p), string(q)+"/")
}
