// Copyright 2023 The robomesh authors. All rights reserved.

// Package kinematics computes forward link transforms for
// articulated robots.
//
// The package deliberately stops at forward transforms:
// there is no inverse kinematics, no dynamics and no
// collision checking. Robot, in the root package, accepts
// any Model, so a full solver can be substituted for the
// URDF-backed tree implemented here.
package kinematics

import (
	"fmt"

	"github.com/robomesh/robomesh/linear"
)

const prefix = "kinematics: "

// Joint types. Fixed joints are folded into the frame
// tree and never appear in Joints.
const (
	Revolute   = "revolute"
	Continuous = "continuous"
	Prismatic  = "prismatic"
)

// Joint describes one movable joint of a model.
type Joint struct {
	Name string
	Type string
	// Limit is nil for continuous joints.
	Limit *Limit
}

// Limit bounds a joint value.
type Limit struct {
	Lower float64
	Upper float64
}

// Config holds one value per movable joint, ordered as
// the model's Joints slice. Revolute and continuous
// values are radians; prismatic values are meters.
type Config []float64

// Shapes of link geometries.
const (
	ShapeBox = iota
	ShapeCylinder
	ShapeSphere
	ShapeMesh
)

// Geometry is one visual (or collision) geometry attached
// to a link. The set of geometries is fixed per model;
// only their world poses vary with the configuration.
type Geometry struct {
	// Name is unique within the model.
	Name string
	// Link is the name of the owning link.
	Link string
	// Origin places the geometry in the link frame.
	Origin linear.M4
	Shape  int

	// Box lengths.
	Size linear.V3
	// Cylinder and sphere.
	Radius float64
	Length float64
	// Mesh file, already resolved to a real path.
	MeshPath  string
	MeshScale linear.V3

	// Material from the description, when present.
	Color       [4]float64
	HasColor    bool
	TexturePath string
}

// Model maps joint configurations to world transforms of
// link geometries.
type Model interface {
	// Name returns the model name.
	Name() string

	// Joints returns the movable joints in tree order.
	Joints() []Joint

	// JointIndex returns the Config index of the named
	// joint, or -1.
	JointIndex(name string) int

	// Neutral returns the zero configuration, clamped
	// into joint limits.
	Neutral() Config

	// Geometries returns the model's link geometries.
	// The slice is fixed for the model's lifetime.
	Geometries() []Geometry

	// GeometryPoses returns one world transform per
	// Geometries element for the given configuration.
	// The model's root link is the world origin; callers
	// compose a base pose on top.
	GeometryPoses(cfg Config) ([]linear.M4, error)
}

// LimitError reports a configuration value outside its
// joint's limits. The value is clamped before use; the
// error tells the caller what was lost.
type LimitError struct {
	Joint string
	Value float64
	Limit Limit
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%sjoint %s value %v outside [%v, %v]",
		prefix, e.Joint, e.Value, e.Limit.Lower, e.Limit.Upper)
}
