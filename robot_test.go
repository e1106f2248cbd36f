// Copyright 2023 The robomesh authors. All rights reserved.

package robomesh

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robomesh/robomesh/linear"
	"github.com/robomesh/robomesh/meshcat"
)

const armURDF = `<?xml version="1.0"?>
<robot name="arm">
  <link name="base">
    <visual>
      <geometry><box size="0.2 0.2 0.1"/></geometry>
      <material name="steel"><color rgba="0.6 0.6 0.7 1"/></material>
    </visual>
  </link>
  <link name="upper">
    <visual>
      <origin xyz="0 0 0.15"/>
      <geometry><cylinder radius="0.03" length="0.3"/></geometry>
    </visual>
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

func writeURDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arm.urdf")
	require.NoError(t, os.WriteFile(path, []byte(armURDF), 0o644))
	return path
}

func TestNewRobotFromURDF(t *testing.T) {
	r, err := NewRobotFromURDF(writeURDF(t), WithRobotName("arm"))
	require.NoError(t, err)

	assert.Equal(t, "arm", r.Name())
	objs := r.leafObjects()
	require.Len(t, objs, 3)
	assert.Equal(t, "arm/base", objs[0].Name())
	assert.Equal(t, "arm/upper", objs[1].Name())
	assert.Equal(t, "arm/slider", objs[2].Name())

	// The base link material comes from the description.
	assert.Equal(t, [3]float64{0.6, 0.6, 0.7}, objs[0].Color())

	// Neutral configuration is already applied.
	assert.InDelta(t, 0.25, objs[1].Pos()[2], 1e-9)
	assert.InDelta(t, 0.4, objs[2].Pos()[2], 1e-9)
}

func TestRobotAutoName(t *testing.T) {
	r, err := NewRobotFromURDF(writeURDF(t))
	require.NoError(t, err)
	assert.Contains(t, r.Name(), "robot")
}

func TestRobotColorOverride(t *testing.T) {
	r, err := NewRobotFromURDF(writeURDF(t),
		WithRobotColor(1, 0, 0), WithRobotOpacity(0.5))
	require.NoError(t, err)
	for _, o := range r.leafObjects() {
		assert.Equal(t, [3]float64{1, 0, 0}, o.Color())
		assert.Equal(t, 0.5, o.Opacity())
	}
}

func TestRobotJoints(t *testing.T) {
	r, err := NewRobotFromURDF(writeURDF(t))
	require.NoError(t, err)

	v, err := r.Joint("shoulder")
	require.NoError(t, err)
	assert.Zero(t, v)

	require.NoError(t, r.SetJoint("lift", 0.2))
	v, err = r.JointAt(1)
	require.NoError(t, err)
	assert.Equal(t, 0.2, v)

	_, err = r.Joint("elbow")
	assert.Error(t, err)
	assert.Error(t, r.SetJoint("elbow", 1))
	assert.Error(t, r.SetJointAt(5, 1))

	require.NoError(t, r.SetConfig(r.Config()))
	assert.Error(t, r.SetConfig(nil))
}

func TestRobotRender(t *testing.T) {
	s, rec := newTestScene(t)
	r, err := NewRobotFromURDF(writeURDF(t), WithRobotName("arm"))
	require.NoError(t, err)
	require.NoError(t, s.Add(r))

	// A quarter turn about y moves the slider from above
	// the shoulder to in front of it.
	require.NoError(t, r.SetJoint("shoulder", math.Pi/2))
	require.NoError(t, s.Render())

	var last *meshcat.Command
	for _, c := range commandsOf(rec, "meshcat/arm/slider") {
		if c.Type == meshcat.TSetTransform {
			last = c
		}
	}
	require.NotNil(t, last)
	assert.InDelta(t, 0.3, last.Matrix[12], 1e-6)
	assert.InDelta(t, 0.1, last.Matrix[14], 1e-6)
}

func TestRobotBasePose(t *testing.T) {
	r, err := NewRobotFromURDF(writeURDF(t))
	require.NoError(t, err)
	r.SetPos(&linear.V3{1, 0, 0})
	require.NoError(t, r.UpdateFrames())
	assert.InDelta(t, 1.0, r.leafObjects()[0].Pos()[0], 1e-9)
}

func TestRobotLimitClamp(t *testing.T) {
	s, _ := newTestScene(t)
	r, err := NewRobotFromURDF(writeURDF(t), WithRobotName("arm"))
	require.NoError(t, err)
	require.NoError(t, s.Add(r))

	// Out-of-limit values clamp with a warning; the render
	// still succeeds.
	require.NoError(t, r.SetJoint("lift", 2))
	require.NoError(t, s.Render())
	assert.InDelta(t, 0.9, r.leafObjects()[2].Pos()[2], 1e-9)
}
