// Copyright 2023 The robomesh authors. All rights reserved.

package meshcat

import (
	"github.com/google/uuid"
)

// Object is the lowered form of one renderable entity:
// the geometry/material/texture resources plus the mesh
// node that ties them together.
type Object struct {
	Metadata   Metadata    `msgpack:"metadata"`
	Geometries []Geometry  `msgpack:"geometries"`
	Materials  []*Material `msgpack:"materials"`
	Textures   []*Texture  `msgpack:"textures,omitempty"`
	Images     []*Image    `msgpack:"images,omitempty"`
	Object     Mesh        `msgpack:"object"`
}

// Metadata tags the lowered object format.
type Metadata struct {
	Version float64 `msgpack:"version"`
	Type    string  `msgpack:"type"`
}

// Mesh is the node tying a geometry to a material.
type Mesh struct {
	UUID     string       `msgpack:"uuid"`
	Type     string       `msgpack:"type"`
	Geometry string       `msgpack:"geometry"`
	Material string       `msgpack:"material"`
	Matrix   *[16]float32 `msgpack:"matrix,omitempty"`
}

// NewObject ties a geometry and a material into an object
// ready for a set_object command.
func NewObject(g Geometry, m *Material) *Object {
	return &Object{
		Metadata:   Metadata{Version: 4.5, Type: "Object"},
		Geometries: []Geometry{g},
		Materials:  []*Material{m},
		Object: Mesh{
			UUID:     uuid.NewString(),
			Type:     "Mesh",
			Geometry: g.GeometryUUID(),
			Material: m.UUID,
		},
	}
}

// SetTexture attaches an image texture to the object's
// material.
func (o *Object) SetTexture(t *Texture, img *Image) {
	o.Textures = append(o.Textures, t)
	o.Images = append(o.Images, img)
	o.Materials[0].Map = t.UUID
}

// SetLocalScale bakes a scale into the mesh node itself.
// The node's transform stays free for set_transform, so
// this is how scaled mesh files keep their scale.
func (o *Object) SetLocalScale(sx, sy, sz float64) {
	o.Object.Matrix = &[16]float32{
		float32(sx), 0, 0, 0,
		0, float32(sy), 0, 0,
		0, 0, float32(sz), 0,
		0, 0, 0, 1,
	}
}
