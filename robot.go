// Copyright 2023 The robomesh authors. All rights reserved.

package robomesh

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/robomesh/robomesh/kinematics"
	"github.com/robomesh/robomesh/linear"
)

var robotCount atomic.Uint64

// Robot is an articulated robot. It owns one Object per
// link geometry of its kinematic model; the objects' poses
// follow the joint configuration and the base pose.
type Robot struct {
	name  string
	model kinematics.Model
	cfg   kinematics.Config
	base  linear.M4
	objs  []*Object
}

type robotConfig struct {
	name      string
	color     *[3]float64
	opacity   *float64
	pose      *linear.M4
	collision bool
	meshDir   string
}

// RobotOption configures a Robot at construction.
type RobotOption func(*robotConfig)

// WithRobotName sets the registry name. An empty name gets
// an automatic robot%d one.
func WithRobotName(name string) RobotOption {
	return func(c *robotConfig) { c.name = name }
}

// WithRobotColor overrides the description's materials
// with one flat color.
func WithRobotColor(r, g, b float64) RobotOption {
	return func(c *robotConfig) { c.color = &[3]float64{r, g, b} }
}

// WithRobotOpacity overrides the description's opacity.
func WithRobotOpacity(opacity float64) RobotOption {
	return func(c *robotConfig) { c.opacity = &opacity }
}

// WithRobotPose sets the initial base pose.
func WithRobotPose(pose *linear.M4) RobotOption {
	return func(c *robotConfig) { c.pose = pose }
}

// WithCollisionModels shows the collision geometries
// instead of the visual ones.
func WithCollisionModels() RobotOption {
	return func(c *robotConfig) { c.collision = true }
}

// WithMeshDir resolves mesh references against dir instead
// of the description file's directory.
func WithMeshDir(dir string) RobotOption {
	return func(c *robotConfig) { c.meshDir = dir }
}

// NewRobotFromURDF builds a robot from a description file.
func NewRobotFromURDF(path string, opts ...RobotOption) (*Robot, error) {
	var c robotConfig
	for _, opt := range opts {
		opt(&c)
	}
	model, err := kinematics.FromURDFFile(path, &kinematics.Params{
		Collision: c.collision,
		MeshDir:   c.meshDir,
	})
	if err != nil {
		return nil, err
	}
	return newRobot(model, &c)
}

// NewRobot builds a robot from an existing kinematic
// model.
func NewRobot(model kinematics.Model, opts ...RobotOption) (*Robot, error) {
	var c robotConfig
	for _, opt := range opts {
		opt(&c)
	}
	return newRobot(model, &c)
}

func newRobot(model kinematics.Model, c *robotConfig) (*Robot, error) {
	r := &Robot{
		name:  c.name,
		model: model,
		cfg:   model.Neutral(),
	}
	if r.name == "" {
		r.name = autoName("robot", &robotCount)
	}
	r.base.I()
	if c.pose != nil {
		r.base = *c.pose
	}
	for _, g := range model.Geometries() {
		o, err := r.newGeomObject(&g, c)
		if err != nil {
			return nil, fmt.Errorf("robomesh: robot %s: %w", r.name, err)
		}
		r.objs = append(r.objs, o)
	}
	if err := r.refresh(); err != nil {
		return nil, err
	}
	return r, nil
}

// newGeomObject lowers one link geometry into an Object,
// applying the robot-wide color/opacity overrides over the
// description's own material.
func (r *Robot) newGeomObject(g *kinematics.Geometry, c *robotConfig) (*Object, error) {
	color := [3]float64{0.9, 0.9, 0.9}
	opacity := 1.0
	if g.HasColor {
		color = [3]float64{g.Color[0], g.Color[1], g.Color[2]}
		opacity = g.Color[3]
	}
	if c.color != nil {
		color = *c.color
	}
	if c.opacity != nil {
		opacity = *c.opacity
	}
	opts := []ObjectOption{
		WithName(r.name + "/" + g.Name),
		WithColor(color[0], color[1], color[2]),
		WithOpacity(opacity),
	}
	if g.TexturePath != "" {
		opts = append(opts, WithTexture(g.TexturePath))
	}

	var o *Object
	switch g.Shape {
	case kinematics.ShapeBox:
		o = NewCuboid(g.Size[0], g.Size[1], g.Size[2], opts...)
	case kinematics.ShapeSphere:
		o = NewSphere(g.Radius, opts...)
	case kinematics.ShapeCylinder:
		o = NewCylinder(g.Radius, g.Length, opts...)
	case kinematics.ShapeMesh:
		var err error
		o, err = NewMesh(g.MeshPath, 1, opts...)
		if err != nil {
			return nil, err
		}
		o.scale = g.MeshScale
	default:
		return nil, fmt.Errorf("robomesh: unknown shape %d of geometry %s", g.Shape, g.Name)
	}
	if o.textureErr != nil {
		return nil, o.textureErr
	}
	return o, nil
}

// Name returns the registry name.
func (r *Robot) Name() string { return r.name }

// Model returns the underlying kinematic model.
func (r *Robot) Model() kinematics.Model { return r.model }

// Pose returns the base pose.
func (r *Robot) Pose() linear.M4 { return r.base }

// SetPose replaces the base pose.
func (r *Robot) SetPose(m *linear.M4) { r.base = *m }

// Pos returns the translation part of the base pose.
func (r *Robot) Pos() linear.V3 { return r.base.Translation() }

// SetPos replaces the translation part of the base pose.
func (r *Robot) SetPos(p *linear.V3) { r.base.SetTranslation(p) }

// SetRot replaces the rotation part of the base pose.
func (r *Robot) SetRot(m *linear.M3) { r.base.SetRotation(m) }

// Config returns a copy of the joint configuration.
func (r *Robot) Config() kinematics.Config {
	return append(kinematics.Config(nil), r.cfg...)
}

// SetConfig replaces the joint configuration.
func (r *Robot) SetConfig(cfg kinematics.Config) error {
	if len(cfg) != len(r.cfg) {
		return fmt.Errorf("robomesh: robot %s: config length %d, want %d",
			r.name, len(cfg), len(r.cfg))
	}
	copy(r.cfg, cfg)
	return nil
}

// Joint returns the value of the named joint.
func (r *Robot) Joint(name string) (float64, error) {
	i := r.model.JointIndex(name)
	if i < 0 {
		return 0, fmt.Errorf("robomesh: robot %s: unknown joint %q", r.name, name)
	}
	return r.cfg[i], nil
}

// SetJoint sets the value of the named joint. The new
// link poses reach the viewer on the next render.
func (r *Robot) SetJoint(name string, value float64) error {
	i := r.model.JointIndex(name)
	if i < 0 {
		return fmt.Errorf("robomesh: robot %s: unknown joint %q", r.name, name)
	}
	r.cfg[i] = value
	return nil
}

// JointAt returns the value of the joint at index i.
func (r *Robot) JointAt(i int) (float64, error) {
	if i < 0 || i >= len(r.cfg) {
		return 0, fmt.Errorf("robomesh: robot %s: joint index %d out of range", r.name, i)
	}
	return r.cfg[i], nil
}

// SetJointAt sets the value of the joint at index i.
func (r *Robot) SetJointAt(i int, value float64) error {
	if i < 0 || i >= len(r.cfg) {
		return fmt.Errorf("robomesh: robot %s: joint index %d out of range", r.name, i)
	}
	r.cfg[i] = value
	return nil
}

func (r *Robot) leafObjects() []*Object { return r.objs }

// UpdateFrames recomputes forward transforms and moves the
// owned objects. A scene does this before every render; it
// only needs calling directly when the objects are read
// outside one.
func (r *Robot) UpdateFrames() error { return r.refresh() }

// refresh recomputes forward transforms and moves the
// owned objects. A LimitError still leaves every pose
// valid, computed from the clamped configuration.
func (r *Robot) refresh() error {
	poses, err := r.model.GeometryPoses(r.cfg)
	if err != nil {
		var le *kinematics.LimitError
		if !errors.As(err, &le) {
			return err
		}
	}
	for i, o := range r.objs {
		var world linear.M4
		world.Mul(&r.base, &poses[i])
		o.pose = world
	}
	return err
}
