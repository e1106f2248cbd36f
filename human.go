// Copyright 2023 The robomesh authors. All rights reserved.

package robomesh

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/robomesh/robomesh/linear"
	"github.com/robomesh/robomesh/meshcat"
)

// BodyParams parameterize one evaluation of a body model.
// Meaning and lengths of the slices are model-specific.
type BodyParams struct {
	Shape      []float64
	Pose       []float64
	Expression []float64
}

// BodyModel regresses a triangular body mesh from shape,
// pose and expression parameters. The mesh topology is
// fixed; only vertex positions vary.
type BodyModel interface {
	// VertexCount returns the fixed number of vertices.
	VertexCount() int

	// Faces returns the fixed triangle topology.
	Faces() [][3]uint32

	// Vertices evaluates the model. A nil params value
	// means the neutral body.
	Vertices(p *BodyParams) ([]linear.V3, error)
}

// Human is an Object whose triangular mesh comes from a
// body model. Beyond the Object properties it supports
// geometry recreation and morph targets, which let body
// shapes blend inside viewer animations.
type Human struct {
	Object
	model  BodyModel
	colors []linear.V3
}

// NewHuman creates a human from the neutral evaluation of
// model. Accepts the Object options; WithVertexColors
// spreads the flat color over the vertices so that later
// updates can recolor per vertex.
func NewHuman(model BodyModel, opts ...ObjectOption) (*Human, error) {
	h := &Human{model: model}
	h.Object = *newObject(nil, opts)
	if h.textureErr != nil {
		return nil, h.textureErr
	}
	if h.vertexColors {
		h.colors = make([]linear.V3, model.VertexCount())
		for i := range h.colors {
			h.colors[i] = linear.V3{h.color[0], h.color[1], h.color[2]}
		}
		h.color = [3]float64{1, 1, 1}
	}
	if err := h.UpdateVertices(nil, nil); err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateVertices re-evaluates the body model and recreates
// the mesh geometry. colors may replace the stored
// per-vertex colors. Recreating geometry is not possible
// inside an animation; use AddMorph and DisplayMorph for
// animated shape changes.
func (h *Human) UpdateVertices(p *BodyParams, colors []linear.V3) error {
	if h.scene != nil && h.scene.animating() {
		h.scene.log.Warn("updating vertices recreates geometry and is not animatable, ignoring",
			zap.String("name", h.name))
		return nil
	}
	verts, err := h.model.Vertices(p)
	if err != nil {
		return fmt.Errorf("robomesh: human %s: %w", h.name, err)
	}
	if colors != nil {
		if len(colors) != len(verts) {
			return fmt.Errorf("robomesh: human %s: %d vertex colors for %d vertices",
				h.name, len(colors), len(verts))
		}
		h.colors = colors
	}
	h.geom = meshcat.NewTriMesh(verts, h.model.Faces(), h.colors)
	h.influences = nil
	h.dirtyObject = true
	return nil
}

// AddMorph registers the given evaluation as a morph
// target. Morphs must be registered before the human is
// added to a scene; the viewer receives them with the
// geometry and cannot take more later.
func (h *Human) AddMorph(p *BodyParams, colors []linear.V3) error {
	if h.scene != nil {
		h.scene.log.Warn("morphs must be added before the human is in a scene, ignoring",
			zap.String("name", h.name))
		return nil
	}
	verts, err := h.model.Vertices(p)
	if err != nil {
		return fmt.Errorf("robomesh: human %s: %w", h.name, err)
	}
	g := h.geom.(*meshcat.BufferGeometry)
	g.AddMorphPositions(verts)
	if colors != nil {
		g.AddMorphColors(colors)
	}
	h.influences = make([]float64, g.MorphCount())
	return nil
}

// MorphCount returns the number of registered morphs.
func (h *Human) MorphCount() int {
	return h.geom.(*meshcat.BufferGeometry).MorphCount()
}

// DisplayMorph sets the morph influences to show only
// morph i; a negative i shows the base body. Influences
// are animatable.
func (h *Human) DisplayMorph(i int) {
	h.influences = make([]float64, h.MorphCount())
	if i >= 0 && i < len(h.influences) {
		h.influences[i] = 1
	}
	if h.scene != nil && h.scene.animating() {
		h.scene.anim.anim.SetProperty(h.scene.anim.frame, h.path(),
			"morphTargetInfluences", meshcat.TypeVector,
			append([]float64(nil), h.influences...))
		return
	}
	h.dirtyProps = true
}
