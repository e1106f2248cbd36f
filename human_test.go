// Copyright 2023 The robomesh authors. All rights reserved.

package robomesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robomesh/robomesh/linear"
	"github.com/robomesh/robomesh/meshcat"
)

// tetraModel is a four-vertex body model whose first shape
// parameter stretches the mesh along z.
type tetraModel struct{}

func (tetraModel) VertexCount() int { return 4 }

func (tetraModel) Faces() [][3]uint32 {
	return [][3]uint32{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}}
}

func (tetraModel) Vertices(p *BodyParams) ([]linear.V3, error) {
	stretch := 1.0
	if p != nil && len(p.Shape) > 0 {
		stretch += p.Shape[0]
	}
	return []linear.V3{
		{0, 0, 0},
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, stretch},
	}, nil
}

func TestNewHuman(t *testing.T) {
	h, err := NewHuman(tetraModel{}, WithName("person"))
	require.NoError(t, err)
	assert.Equal(t, "person", h.Name())
	assert.Zero(t, h.MorphCount())

	g := h.geom.(*meshcat.BufferGeometry)
	assert.Len(t, g.Data.Attributes["position"].Array, 4*12)
}

func TestHumanVertexColors(t *testing.T) {
	h, err := NewHuman(tetraModel{}, WithVertexColors(), WithColor(0, 0, 1))
	require.NoError(t, err)

	// The flat color moves into the vertices.
	assert.Equal(t, [3]float64{1, 1, 1}, h.Color())
	require.Len(t, h.colors, 4)
	assert.Equal(t, linear.V3{0, 0, 1}, h.colors[0])

	g := h.geom.(*meshcat.BufferGeometry)
	assert.Contains(t, g.Data.Attributes, "color")
}

func TestHumanMorphs(t *testing.T) {
	s, rec := newTestScene(t)
	h, err := NewHuman(tetraModel{}, WithName("person"))
	require.NoError(t, err)

	require.NoError(t, h.AddMorph(&BodyParams{Shape: []float64{1}}, nil))
	require.NoError(t, h.AddMorph(&BodyParams{Shape: []float64{2}}, nil))
	assert.Equal(t, 2, h.MorphCount())

	require.NoError(t, s.Add(h))

	// Too late: the geometry is already in the viewer.
	require.NoError(t, h.AddMorph(&BodyParams{Shape: []float64{3}}, nil))
	assert.Equal(t, 2, h.MorphCount())

	h.DisplayMorph(1)
	require.NoError(t, s.Render())

	var inf *meshcat.Command
	for _, c := range commandsOf(rec, "meshcat/person") {
		if c.Type == meshcat.TSetProperty && c.Property == "morphTargetInfluences" {
			inf = c
		}
	}
	require.NotNil(t, inf)
	assert.Equal(t, []float64{0, 1}, inf.Value)
}

func TestHumanMorphAnimation(t *testing.T) {
	s, _ := newTestScene(t)
	h, err := NewHuman(tetraModel{}, WithName("person"))
	require.NoError(t, err)
	require.NoError(t, h.AddMorph(&BodyParams{Shape: []float64{1}}, nil))
	require.NoError(t, s.Add(h))

	rec := meshcat.NewRecorder()
	s.tr = rec
	err = s.Animation(30, func() error {
		h.DisplayMorph(-1)
		require.NoError(t, s.Render())
		h.DisplayMorph(0)
		return nil
	})
	require.NoError(t, err)

	anim := rec.LastOfType(meshcat.TSetAnimation)
	require.NotNil(t, anim)
	var clip *meshcat.Clip
	for _, pc := range anim.Animations {
		if pc.Path == "meshcat/person" {
			clip = pc.Clip
		}
	}
	require.NotNil(t, clip)

	var track *meshcat.Track
	for _, tr := range clip.Tracks {
		if tr.Name == ".morphTargetInfluences" {
			track = tr
		}
	}
	require.NotNil(t, track)
	assert.Equal(t, meshcat.TypeVector, track.Type)
	require.Len(t, track.Keys, 2)
	assert.Equal(t, []float64{0}, track.Keys[0].Value)
	assert.Equal(t, []float64{1}, track.Keys[1].Value)
}

func TestUpdateVerticesWhileAnimating(t *testing.T) {
	s, _ := newTestScene(t)
	h, err := NewHuman(tetraModel{}, WithName("person"))
	require.NoError(t, err)
	require.NoError(t, s.Add(h))

	before := h.geom
	err = s.Animation(30, func() error {
		return h.UpdateVertices(&BodyParams{Shape: []float64{1}}, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, before, h.geom, "geometry must not change while animating")

	// Outside the session the geometry is recreated.
	require.NoError(t, h.UpdateVertices(&BodyParams{Shape: []float64{1}}, nil))
	assert.NotEqual(t, before, h.geom)
}
