// Copyright 2023 The robomesh authors. All rights reserved.

package meshcat

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/robomesh/robomesh/linear"
)

// Command types understood by the viewer.
const (
	TSetObject    = "set_object"
	TSetTransform = "set_transform"
	TSetProperty  = "set_property"
	TSetAnimation = "set_animation"
	TDelete       = "delete"
	TCaptureImage = "capture_image"
)

// Command is one scene-tree mutation, lowered to the
// msgpack map layout the viewer expects.
type Command struct {
	Type   string       `msgpack:"type"`
	Path   string       `msgpack:"path"`
	Object *Object      `msgpack:"object,omitempty"`
	Matrix *[16]float32 `msgpack:"matrix,omitempty"`

	Property string `msgpack:"property,omitempty"`
	Value    any    `msgpack:"value,omitempty"`

	Animations []PathClip   `msgpack:"animations,omitempty"`
	Options    *ClipOptions `msgpack:"options,omitempty"`

	XRes int `msgpack:"xres,omitempty"`
	YRes int `msgpack:"yres,omitempty"`
}

// Encode returns the msgpack encoding of c.
func (c *Command) Encode() ([]byte, error) {
	return msgpack.Marshal(c)
}

// DecodeCommand decodes one msgpack command.
func DecodeCommand(b []byte) (*Command, error) {
	var c Command
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetObject places obj at path, replacing whatever the
// path held.
func SetObject(path Path, obj *Object) *Command {
	return &Command{Type: TSetObject, Path: string(path), Object: obj}
}

// SetTransform sets the transform of the node at path.
func SetTransform(path Path, m *linear.M4) *Command {
	return &Command{Type: TSetTransform, Path: string(path), Matrix: flatten(m)}
}

// SetProperty sets a named property of the node at path.
func SetProperty(path Path, prop string, value any) *Command {
	return &Command{Type: TSetProperty, Path: string(path), Property: prop, Value: value}
}

// Delete removes the subtree rooted at path.
func Delete(path Path) *Command {
	return &Command{Type: TDelete, Path: string(path)}
}

// CaptureImage requests a rendered frame of the given size.
func CaptureImage(width, height int) *Command {
	return &Command{Type: TCaptureImage, XRes: width, YRes: height}
}

// flatten lowers a column-major float64 matrix into the
// column-major float32 array the viewer consumes.
func flatten(m *linear.M4) *[16]float32 {
	var f [16]float32
	for i := range m {
		for j := range m[i] {
			f[i*4+j] = float32(m[i][j])
		}
	}
	return &f
}
