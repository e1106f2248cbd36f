// Copyright 2023 The robomesh authors. All rights reserved.

package kinematics

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robomesh/robomesh/linear"
	"github.com/robomesh/robomesh/urdf"
)

const arm = `<?xml version="1.0"?>
<robot name="arm">
  <link name="base">
    <visual>
      <geometry><box size="0.2 0.2 0.1"/></geometry>
    </visual>
  </link>
  <link name="upper">
    <visual>
      <origin xyz="0 0 0.15"/>
      <geometry><cylinder radius="0.03" length="0.3"/></geometry>
    </visual>
    <collision>
      <geometry><sphere radius="0.2"/></geometry>
    </collision>
  </link>
  <link name="slider">
    <visual>
      <geometry><sphere radius="0.05"/></geometry>
    </visual>
  </link>
  <joint name="shoulder" type="revolute">
    <origin xyz="0 0 0.1"/>
    <parent link="base"/>
    <child link="upper"/>
    <axis xyz="0 1 0"/>
    <limit lower="-1.6" upper="1.6" effort="10" velocity="1"/>
  </joint>
  <joint name="lift" type="prismatic">
    <origin xyz="0 0 0.3"/>
    <parent link="upper"/>
    <child link="slider"/>
    <axis xyz="0 0 1"/>
    <limit lower="0" upper="0.5" effort="10" velocity="1"/>
  </joint>
</robot>`

func mustTree(t *testing.T, doc string, p *Params) *Tree {
	t.Helper()
	r, err := urdf.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	tree, err := FromURDF(r, p)
	require.NoError(t, err)
	return tree
}

func TestFromURDF(t *testing.T) {
	tree := mustTree(t, arm, nil)

	assert.Equal(t, "arm", tree.Name())

	joints := tree.Joints()
	require.Len(t, joints, 2)
	assert.Equal(t, "shoulder", joints[0].Name)
	assert.Equal(t, Revolute, joints[0].Type)
	assert.Equal(t, "lift", joints[1].Name)
	assert.Equal(t, Prismatic, joints[1].Type)

	assert.Equal(t, 0, tree.JointIndex("shoulder"))
	assert.Equal(t, 1, tree.JointIndex("lift"))
	assert.Equal(t, -1, tree.JointIndex("elbow"))

	geoms := tree.Geometries()
	require.Len(t, geoms, 3)
	assert.Equal(t, "base", geoms[0].Name)
	assert.Equal(t, ShapeBox, geoms[0].Shape)
	assert.Equal(t, "upper", geoms[1].Name)
	assert.Equal(t, ShapeCylinder, geoms[1].Shape)
	assert.Equal(t, "slider", geoms[2].Name)
}

func TestGeometryPoses(t *testing.T) {
	tree := mustTree(t, arm, nil)

	poses, err := tree.GeometryPoses(tree.Neutral())
	require.NoError(t, err)
	require.Len(t, poses, 3)

	// Neutral: the upper link's visual sits at joint
	// origin 0.1 plus visual offset 0.15.
	assert.InDelta(t, 0.25, poses[1].Translation()[2], 1e-12)
	// The slider hangs at 0.1 + 0.3.
	assert.InDelta(t, 0.4, poses[2].Translation()[2], 1e-12)

	// Quarter turn about +y maps the link's z onto x.
	poses, err = tree.GeometryPoses(Config{math.Pi / 2, 0})
	require.NoError(t, err)
	tr := poses[1].Translation()
	assert.InDelta(t, 0.15, tr[0], 1e-12)
	assert.InDelta(t, 0.1, tr[2], 1e-12)
	tr = poses[2].Translation()
	assert.InDelta(t, 0.3, tr[0], 1e-12)
	assert.InDelta(t, 0.1, tr[2], 1e-12)

	// Prismatic extension moves the slider along the
	// (rotated) joint axis only.
	poses, err = tree.GeometryPoses(Config{0, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, poses[2].Translation()[2], 1e-12)
}

func TestLimitClamp(t *testing.T) {
	tree := mustTree(t, arm, nil)

	poses, err := tree.GeometryPoses(Config{10, 0})
	var lim *LimitError
	require.ErrorAs(t, err, &lim)
	assert.Equal(t, "shoulder", lim.Joint)
	assert.Equal(t, 10.0, lim.Value)

	// Poses follow the clamped value.
	want, err2 := tree.GeometryPoses(Config{1.6, 0})
	require.NoError(t, err2)
	assert.Equal(t, want, poses)
}

func TestNeutralClamped(t *testing.T) {
	doc := `<robot name="r">
	  <link name="a"/><link name="b"/>
	  <joint name="j" type="revolute">
	    <parent link="a"/><child link="b"/>
	    <limit lower="0.5" upper="2" effort="1" velocity="1"/>
	  </joint>
	</robot>`
	tree := mustTree(t, doc, nil)
	assert.Equal(t, Config{0.5}, tree.Neutral())
}

func TestCollisionGeometries(t *testing.T) {
	tree := mustTree(t, arm, &Params{Collision: true})
	geoms := tree.Geometries()
	require.Len(t, geoms, 1)
	assert.Equal(t, ShapeSphere, geoms[0].Shape)
	assert.Equal(t, "upper", geoms[0].Link)
}

func TestMeshResolution(t *testing.T) {
	doc := `<robot name="r">
	  <link name="a">
	    <visual>
	      <geometry><mesh filename="package://r/meshes/a.obj"/></geometry>
	    </visual>
	  </link>
	</robot>`
	r, err := urdf.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	tree, err := FromURDF(r, &Params{MeshDir: "descriptions/r"})
	require.NoError(t, err)
	g := tree.Geometries()[0]
	assert.Equal(t, ShapeMesh, g.Shape)
	assert.Equal(t, "descriptions/r/meshes/a.obj", g.MeshPath)
	assert.Equal(t, linear.V3{1, 1, 1}, g.MeshScale)
}

func TestUnsupportedJoint(t *testing.T) {
	doc := `<robot name="r">
	  <link name="a"/><link name="b"/>
	  <joint name="j" type="floating">
	    <parent link="a"/><child link="b"/>
	  </joint>
	</robot>`
	r, err := urdf.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	_, err = FromURDF(r, nil)
	require.ErrorContains(t, err, "unsupported joint type")
}
