// Copyright 2023 The robomesh authors. All rights reserved.

package kinematics

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/robomesh/robomesh/linear"
	"github.com/robomesh/robomesh/urdf"
)

// Params configures FromURDF.
type Params struct {
	// Collision selects the collision geometries instead
	// of the visual ones.
	Collision bool
	// MeshDir resolves mesh file references. FromURDFFile
	// defaults it to the description file's directory.
	MeshDir string
}

// Tree is a Model backed by a robot description.
// Frames are stored so that every parent comes before
// any of its descendants, which lets GeometryPoses fill
// world transforms in a single pass.
type Tree struct {
	name      string
	frames    []frame
	joints    []Joint
	jointIdx  map[string]int
	geoms     []Geometry
	geomFrame []int
}

// frame is one link attached to its parent by a joint.
type frame struct {
	link   string
	parent int // frame index, -1 for the root
	origin linear.M4
	axis   linear.V3
	typ    string // "" for the root and fixed joints
	joint  int    // Config index, -1 when not movable
}

// FromURDFFile parses and validates the description stored
// in the given file and builds a frame tree from it.
func FromURDFFile(path string, param *Params) (*Tree, error) {
	doc, err := urdf.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	var p Params
	if param != nil {
		p = *param
	}
	if p.MeshDir == "" {
		p.MeshDir = filepath.Dir(path)
	}
	return FromURDF(doc, &p)
}

// FromURDF builds a frame tree from a decoded description.
// The description is validated first.
func FromURDF(doc *urdf.Robot, param *Params) (*Tree, error) {
	if err := doc.Check(); err != nil {
		return nil, err
	}
	var p Params
	if param != nil {
		p = *param
	}

	links := make(map[string]*urdf.Link, len(doc.Links))
	isChild := make(map[string]bool, len(doc.Joints))
	byParent := make(map[string][]*urdf.Joint)
	for i := range doc.Links {
		links[doc.Links[i].Name] = &doc.Links[i]
	}
	for i := range doc.Joints {
		j := &doc.Joints[i]
		isChild[j.Child.Link] = true
		byParent[j.Parent.Link] = append(byParent[j.Parent.Link], j)
	}
	var root string
	for i := range doc.Links {
		if !isChild[doc.Links[i].Name] {
			root = doc.Links[i].Name
			break
		}
	}

	t := &Tree{
		name:     doc.Name,
		jointIdx: make(map[string]int),
	}
	var id linear.M4
	id.I()
	t.frames = append(t.frames, frame{link: root, parent: -1, origin: id, joint: -1})

	// Depth first from the root; the stack holds frame
	// indices whose children are still unvisited.
	stack := []int{0}
	for len(stack) > 0 {
		pi := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range byParent[t.frames[pi].link] {
			f := frame{
				link:   j.Child.Link,
				parent: pi,
				origin: originM4(j.Origin),
				axis:   linear.V3{1, 0, 0},
				typ:    j.Type,
				joint:  -1,
			}
			if j.Axis != nil {
				a := linear.V3(j.Axis.XYZ)
				a.Norm(&a)
				f.axis = a
			}
			switch j.Type {
			case urdf.Revolute, urdf.Continuous, urdf.Prismatic:
				f.joint = len(t.joints)
				jnt := Joint{Name: j.Name, Type: j.Type}
				if j.Limit != nil && j.Type != urdf.Continuous {
					jnt.Limit = &Limit{Lower: j.Limit.Lower, Upper: j.Limit.Upper}
				}
				t.jointIdx[j.Name] = f.joint
				t.joints = append(t.joints, jnt)
			case urdf.Fixed:
			default:
				return nil, errors.New(prefix + "unsupported joint type " + j.Type)
			}
			t.frames = append(t.frames, f)
			stack = append(stack, len(t.frames)-1)
		}
	}

	for fi := range t.frames {
		link := links[t.frames[fi].link]
		els := visuals(link, p.Collision)
		for gi, el := range els {
			g := Geometry{
				Name:   geomName(link.Name, el.Name, gi, len(els)),
				Link:   link.Name,
				Origin: originM4(el.Origin),
			}
			if err := shape(&g, &el.Geometry, p.MeshDir); err != nil {
				return nil, err
			}
			material(&g, el.Material, doc, p.MeshDir)
			t.geoms = append(t.geoms, g)
			t.geomFrame = append(t.geomFrame, fi)
		}
	}
	return t, nil
}

// visuals flattens a link's visual or collision elements
// into a common form.
func visuals(link *urdf.Link, collision bool) []*urdf.Visual {
	if !collision {
		els := make([]*urdf.Visual, len(link.Visuals))
		for i := range link.Visuals {
			els[i] = &link.Visuals[i]
		}
		return els
	}
	els := make([]*urdf.Visual, len(link.Collisions))
	for i := range link.Collisions {
		c := &link.Collisions[i]
		els[i] = &urdf.Visual{Name: c.Name, Origin: c.Origin, Geometry: c.Geometry}
	}
	return els
}

func geomName(link, name string, i, n int) string {
	if name != "" {
		return name
	}
	if n == 1 {
		return link
	}
	return fmt.Sprintf("%s_%d", link, i)
}

func shape(g *Geometry, geom *urdf.Geometry, meshDir string) error {
	switch {
	case geom.Box != nil:
		g.Shape = ShapeBox
		g.Size = linear.V3(geom.Box.Size)
	case geom.Cylinder != nil:
		g.Shape = ShapeCylinder
		g.Radius = geom.Cylinder.Radius
		g.Length = geom.Cylinder.Length
	case geom.Sphere != nil:
		g.Shape = ShapeSphere
		g.Radius = geom.Sphere.Radius
	case geom.Mesh != nil:
		g.Shape = ShapeMesh
		g.MeshPath = urdf.ResolveMesh(geom.Mesh.Filename, meshDir)
		g.MeshScale = linear.V3{1, 1, 1}
		if geom.Mesh.Scale != nil {
			g.MeshScale = linear.V3(*geom.Mesh.Scale)
		}
	default:
		return errors.New(prefix + "geometry of " + g.Name + " holds no shape")
	}
	return nil
}

// material fills g from an inline material, resolving
// name-only references against the robot-level materials.
func material(g *Geometry, m *urdf.Material, doc *urdf.Robot, meshDir string) {
	if m == nil {
		return
	}
	if m.Color == nil && m.Texture == nil && m.Name != "" {
		for i := range doc.Materials {
			if doc.Materials[i].Name == m.Name {
				m = &doc.Materials[i]
				break
			}
		}
	}
	if m.Color != nil {
		g.Color = m.Color.RGBA
		g.HasColor = true
	}
	if m.Texture != nil && m.Texture.Filename != "" {
		g.TexturePath = urdf.ResolveMesh(m.Texture.Filename, meshDir)
	}
}

func originM4(o *urdf.Origin) linear.M4 {
	var m linear.M4
	m.I()
	if o == nil {
		return m
	}
	var r linear.M3
	r.FromRPY(o.RPY[0], o.RPY[1], o.RPY[2])
	m.SetRotation(&r)
	t := linear.V3(o.XYZ)
	m.SetTranslation(&t)
	return m
}

// Name returns the description's robot name.
func (t *Tree) Name() string { return t.name }

// Joints returns the movable joints in tree order.
func (t *Tree) Joints() []Joint { return t.joints }

// JointIndex returns the Config index of the named joint,
// or -1.
func (t *Tree) JointIndex(name string) int {
	if i, ok := t.jointIdx[name]; ok {
		return i
	}
	return -1
}

// Neutral returns the zero configuration clamped into
// joint limits.
func (t *Tree) Neutral() Config {
	cfg := make(Config, len(t.joints))
	for i := range t.joints {
		if l := t.joints[i].Limit; l != nil {
			cfg[i] = math.Min(math.Max(0, l.Lower), l.Upper)
		}
	}
	return cfg
}

// Geometries returns the model's link geometries.
func (t *Tree) Geometries() []Geometry { return t.geoms }

// GeometryPoses returns one world transform per geometry.
// Out-of-limit values are clamped and reported through a
// *LimitError; the returned poses are valid for the
// clamped configuration.
func (t *Tree) GeometryPoses(cfg Config) ([]linear.M4, error) {
	if len(cfg) != len(t.joints) {
		return nil, fmt.Errorf("%sconfig has %d values, model has %d joints",
			prefix, len(cfg), len(t.joints))
	}
	var limErr error
	world := make([]linear.M4, len(t.frames))
	for i := range t.frames {
		f := &t.frames[i]
		local := f.origin
		if f.joint >= 0 {
			q := cfg[f.joint]
			if l := t.joints[f.joint].Limit; l != nil && (q < l.Lower || q > l.Upper) {
				if limErr == nil {
					limErr = &LimitError{Joint: t.joints[f.joint].Name, Value: q, Limit: *l}
				}
				q = math.Min(math.Max(q, l.Lower), l.Upper)
			}
			var motion linear.M4
			motion.I()
			switch f.typ {
			case urdf.Prismatic:
				var v linear.V3
				v.Scale(q, &f.axis)
				motion.SetTranslation(&v)
			default:
				var r linear.M3
				r.FromAxisAngle(&f.axis, q)
				motion.SetRotation(&r)
			}
			local.Mul(&local, &motion)
		}
		if f.parent >= 0 {
			local.Mul(&world[f.parent], &local)
		}
		world[i] = local
	}

	poses := make([]linear.M4, len(t.geoms))
	for i := range t.geoms {
		p := world[t.geomFrame[i]]
		p.Mul(&p, &t.geoms[i].Origin)
		poses[i] = p
	}
	return poses, limErr
}
