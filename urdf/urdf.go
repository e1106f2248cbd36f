// Copyright 2023 The robomesh authors. All rights reserved.

// Package urdf implements robot description (URDF) serialization.
package urdf

import (
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Root robot element.
type Robot struct {
	XMLName   xml.Name   `xml:"robot"`
	Name      string     `xml:"name,attr"`
	Materials []Material `xml:"material"`
	Links     []Link     `xml:"link"`
	Joints    []Joint    `xml:"joint"`
}

// robot.material and link.visual.material.
// A material with only a name refers to a robot-level
// material defined elsewhere in the file.
type Material struct {
	Name    string   `xml:"name,attr"`
	Color   *Color   `xml:"color"`
	Texture *Texture `xml:"texture"`
}

// material.color.
type Color struct {
	RGBA Vec4 `xml:"rgba,attr"`
}

// material.texture.
type Texture struct {
	Filename string `xml:"filename,attr"`
}

// robot.link elements.
type Link struct {
	Name       string      `xml:"name,attr"`
	Visuals    []Visual    `xml:"visual"`
	Collisions []Collision `xml:"collision"`
}

// link.visual.
type Visual struct {
	Name     string    `xml:"name,attr"`
	Origin   *Origin   `xml:"origin"`
	Geometry Geometry  `xml:"geometry"`
	Material *Material `xml:"material"`
}

// link.collision.
type Collision struct {
	Name     string   `xml:"name,attr"`
	Origin   *Origin  `xml:"origin"`
	Geometry Geometry `xml:"geometry"`
}

// origin of a visual, collision or joint.
// Both attributes default to zero vectors.
type Origin struct {
	XYZ Vec3 `xml:"xyz,attr"`
	RPY Vec3 `xml:"rpy,attr"`
}

// geometry holds exactly one shape.
type Geometry struct {
	Box      *Box      `xml:"box"`
	Cylinder *Cylinder `xml:"cylinder"`
	Sphere   *Sphere   `xml:"sphere"`
	Mesh     *Mesh     `xml:"mesh"`
}

// geometry.box.
type Box struct {
	Size Vec3 `xml:"size,attr"`
}

// geometry.cylinder. The axis of rotational symmetry
// is the z axis.
type Cylinder struct {
	Radius float64 `xml:"radius,attr"`
	Length float64 `xml:"length,attr"`
}

// geometry.sphere.
type Sphere struct {
	Radius float64 `xml:"radius,attr"`
}

// geometry.mesh.
type Mesh struct {
	Filename string `xml:"filename,attr"`
	Scale    *Vec3  `xml:"scale,attr"` // Default is [1, 1, 1].
}

// robot.joint elements.
type Joint struct {
	Name   string  `xml:"name,attr"`
	Type   string  `xml:"type,attr"`
	Origin *Origin `xml:"origin"`
	Parent Parent  `xml:"parent"`
	Child  Child   `xml:"child"`
	Axis   *Axis   `xml:"axis"`
	Limit  *Limit  `xml:"limit"`
}

// joint.type values.
const (
	Revolute   = "revolute"
	Continuous = "continuous"
	Prismatic  = "prismatic"
	Fixed      = "fixed"
	Floating   = "floating"
	Planar     = "planar"
)

// joint.parent.
type Parent struct {
	Link string `xml:"link,attr"`
}

// joint.child.
type Child struct {
	Link string `xml:"link,attr"`
}

// joint.axis. Defaults to [1, 0, 0].
type Axis struct {
	XYZ Vec3 `xml:"xyz,attr"`
}

// joint.limit.
type Limit struct {
	Lower    float64 `xml:"lower,attr"`
	Upper    float64 `xml:"upper,attr"`
	Effort   float64 `xml:"effort,attr"`
	Velocity float64 `xml:"velocity,attr"`
}

// Vec3 is a whitespace-separated triple of floats,
// e.g. xyz="0 0 0.333".
type Vec3 [3]float64

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (v *Vec3) UnmarshalXMLAttr(attr xml.Attr) error {
	return parseFloats(attr, v[:])
}

// MarshalXMLAttr implements xml.MarshalerAttr.
func (v Vec3) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return formatFloats(name, v[:]), nil
}

// Vec4 is a whitespace-separated quadruple of floats,
// e.g. rgba="1 0.5 0 1".
type Vec4 [4]float64

// UnmarshalXMLAttr implements xml.UnmarshalerAttr.
func (v *Vec4) UnmarshalXMLAttr(attr xml.Attr) error {
	return parseFloats(attr, v[:])
}

// MarshalXMLAttr implements xml.MarshalerAttr.
func (v Vec4) MarshalXMLAttr(name xml.Name) (xml.Attr, error) {
	return formatFloats(name, v[:]), nil
}

func parseFloats(attr xml.Attr, dst []float64) error {
	fields := strings.Fields(attr.Value)
	if len(fields) != len(dst) {
		return newErr("attribute " + attr.Name.Local + " needs " +
			strconv.Itoa(len(dst)) + " values, has " + strconv.Itoa(len(fields)))
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return newErr("attribute " + attr.Name.Local + ": " + err.Error())
		}
		dst[i] = x
	}
	return nil
}

func formatFloats(name xml.Name, src []float64) xml.Attr {
	fields := make([]string, len(src))
	for i, x := range src {
		fields[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return xml.Attr{Name: name, Value: strings.Join(fields, " ")}
}

// Encode encodes robot into w.
func Encode(w io.Writer, robot *Robot) error {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(robot)
}

// Decode decodes r into a new Robot instance.
func Decode(r io.Reader) (*Robot, error) {
	var robot Robot
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&robot); err != nil {
		return nil, err
	}
	return &robot, nil
}

// DecodeFile decodes the description stored in the
// given file.
func DecodeFile(path string) (*Robot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// ResolveMesh resolves a mesh filename reference against dir.
// References of the form package://<pkg>/<path> and file://<path>
// are stripped of their scheme; the remainder, when relative,
// is joined with dir.
func ResolveMesh(filename, dir string) string {
	switch {
	case strings.HasPrefix(filename, "package://"):
		rest := strings.TrimPrefix(filename, "package://")
		// Drop the package name component.
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[i+1:]
		}
		return filepath.Join(dir, filepath.FromSlash(rest))
	case strings.HasPrefix(filename, "file://"):
		filename = strings.TrimPrefix(filename, "file://")
	}
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(dir, filepath.FromSlash(filename))
}
