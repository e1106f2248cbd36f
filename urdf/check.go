// Copyright 2023 The robomesh authors. All rights reserved.

package urdf

import (
	"errors"
)

func newErr(reason string) error {
	return errors.New("urdf: " + reason)
}

// Check checks that r is a valid robot description.
func (r *Robot) Check() error {
	if r.Name == "" {
		return newErr("missing robot name")
	}
	links := make(map[string]bool, len(r.Links))
	for i := range r.Links {
		l := &r.Links[i]
		if l.Name == "" {
			return newErr("missing link name")
		}
		if links[l.Name] {
			return newErr("duplicate link name " + l.Name)
		}
		links[l.Name] = true
		for j := range l.Visuals {
			if err := l.Visuals[j].Geometry.Check(); err != nil {
				return err
			}
		}
		for j := range l.Collisions {
			if err := l.Collisions[j].Geometry.Check(); err != nil {
				return err
			}
		}
	}

	joints := make(map[string]bool, len(r.Joints))
	children := make(map[string]bool, len(r.Joints))
	for i := range r.Joints {
		j := &r.Joints[i]
		if err := j.Check(); err != nil {
			return err
		}
		if joints[j.Name] {
			return newErr("duplicate joint name " + j.Name)
		}
		joints[j.Name] = true
		if !links[j.Parent.Link] {
			return newErr("joint " + j.Name + " refers to undefined parent link " + j.Parent.Link)
		}
		if !links[j.Child.Link] {
			return newErr("joint " + j.Name + " refers to undefined child link " + j.Child.Link)
		}
		if children[j.Child.Link] {
			return newErr("link " + j.Child.Link + " is the child of more than one joint")
		}
		children[j.Child.Link] = true
	}

	// Every link but the root must be some joint's child.
	if len(r.Links) > 0 {
		var root string
		roots := 0
		for name := range links {
			if !children[name] {
				root = name
				roots++
			}
		}
		if roots != 1 {
			return newErr("description must have exactly one root link")
		}

		// A single root does not rule out a detached joint
		// cycle; every link must be reachable from the root.
		byParent := make(map[string][]string, len(r.Joints))
		for i := range r.Joints {
			j := &r.Joints[i]
			byParent[j.Parent.Link] = append(byParent[j.Parent.Link], j.Child.Link)
		}
		reached := map[string]bool{root: true}
		queue := []string{root}
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			for _, c := range byParent[name] {
				if !reached[c] {
					reached[c] = true
					queue = append(queue, c)
				}
			}
		}
		if len(reached) != len(links) {
			for i := range r.Links {
				if !reached[r.Links[i].Name] {
					return newErr("link " + r.Links[i].Name + " is not reachable from the root link")
				}
			}
		}
	}
	return nil
}

// Check checks that g holds exactly one shape.
func (g *Geometry) Check() error {
	n := 0
	if g.Box != nil {
		n++
	}
	if g.Cylinder != nil {
		n++
	}
	if g.Sphere != nil {
		n++
	}
	if g.Mesh != nil {
		n++
	}
	if n != 1 {
		return newErr("geometry must hold exactly one shape")
	}
	return nil
}

// Check checks that j is a valid robot.joints' element.
func (j *Joint) Check() error {
	if j.Name == "" {
		return newErr("missing joint name")
	}
	switch j.Type {
	case Revolute, Prismatic:
		if j.Limit == nil {
			return newErr("joint " + j.Name + " of type " + j.Type + " requires a limit")
		}
		if j.Limit.Lower > j.Limit.Upper {
			return newErr("joint " + j.Name + " has lower limit above upper limit")
		}
	case Continuous, Fixed, Floating, Planar:
	default:
		return newErr("invalid type " + j.Type + " of joint " + j.Name)
	}
	if j.Parent.Link == "" {
		return newErr("missing parent link of joint " + j.Name)
	}
	if j.Child.Link == "" {
		return newErr("missing child link of joint " + j.Name)
	}
	if j.Axis != nil && j.Axis.XYZ == (Vec3{}) {
		return newErr("zero-length axis of joint " + j.Name)
	}
	return nil
}
