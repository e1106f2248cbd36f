// Copyright 2023 The robomesh authors. All rights reserved.

package urdf

import (
	"path/filepath"
	"strings"
	"testing"
)

const sample = `<?xml version="1.0"?>
<robot name="planar2">
  <material name="steel">
    <color rgba="0.6 0.6 0.65 1"/>
  </material>
  <link name="base">
    <visual>
      <origin xyz="0 0 0.05" rpy="0 0 0"/>
      <geometry><box size="0.2 0.2 0.1"/></geometry>
      <material name="steel"/>
    </visual>
  </link>
  <link name="upper">
    <visual>
      <origin xyz="0 0 0.15"/>
      <geometry><cylinder radius="0.03" length="0.3"/></geometry>
      <material name="">
        <color rgba="1 0 0 1"/>
      </material>
    </visual>
    <collision>
      <geometry><cylinder radius="0.04" length="0.3"/></geometry>
    </collision>
  </link>
  <link name="tool">
    <visual>
      <geometry><mesh filename="package://planar2/meshes/tool.obj" scale="0.001 0.001 0.001"/></geometry>
    </visual>
  </link>
  <joint name="shoulder" type="revolute">
    <origin xyz="0 0 0.1"/>
    <parent link="base"/>
    <child link="upper"/>
    <axis xyz="0 1 0"/>
    <limit lower="-1.57" upper="1.57" effort="10" velocity="1"/>
  </joint>
  <joint name="wrist" type="fixed">
    <origin xyz="0 0 0.3" rpy="0 1.5707963 0"/>
    <parent link="upper"/>
    <child link="tool"/>
  </joint>
</robot>`

func TestDecode(t *testing.T) {
	r, err := Decode(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Decode failed:\n%v", err)
	}
	if err := r.Check(); err != nil {
		t.Fatalf("Check failed:\n%v", err)
	}

	if r.Name != "planar2" {
		t.Fatalf("Robot.Name\nhave %q\nwant planar2", r.Name)
	}
	if len(r.Links) != 3 || len(r.Joints) != 2 {
		t.Fatalf("have %d links, %d joints\nwant 3 links, 2 joints", len(r.Links), len(r.Joints))
	}

	base := r.Links[0]
	if base.Visuals[0].Geometry.Box == nil {
		t.Fatal("base visual should be a box")
	}
	if base.Visuals[0].Geometry.Box.Size != (Vec3{0.2, 0.2, 0.1}) {
		t.Fatalf("box size\nhave %v\nwant [0.2 0.2 0.1]", base.Visuals[0].Geometry.Box.Size)
	}
	if base.Visuals[0].Origin.XYZ != (Vec3{0, 0, 0.05}) {
		t.Fatalf("visual origin\nhave %v\nwant [0 0 0.05]", base.Visuals[0].Origin.XYZ)
	}

	upper := r.Links[1]
	if c := upper.Visuals[0].Geometry.Cylinder; c == nil || c.Radius != 0.03 || c.Length != 0.3 {
		t.Fatalf("cylinder\nhave %+v", upper.Visuals[0].Geometry.Cylinder)
	}
	if upper.Visuals[0].Material.Color.RGBA != (Vec4{1, 0, 0, 1}) {
		t.Fatalf("inline material color\nhave %v", upper.Visuals[0].Material.Color.RGBA)
	}
	if len(upper.Collisions) != 1 {
		t.Fatalf("have %d collisions\nwant 1", len(upper.Collisions))
	}

	tool := r.Links[2]
	m := tool.Visuals[0].Geometry.Mesh
	if m == nil || m.Filename != "package://planar2/meshes/tool.obj" {
		t.Fatalf("mesh\nhave %+v", m)
	}
	if m.Scale == nil || *m.Scale != (Vec3{0.001, 0.001, 0.001}) {
		t.Fatalf("mesh scale\nhave %v", m.Scale)
	}

	sh := r.Joints[0]
	if sh.Type != Revolute || sh.Axis.XYZ != (Vec3{0, 1, 0}) {
		t.Fatalf("shoulder joint\nhave %+v", sh)
	}
	if sh.Limit.Lower != -1.57 || sh.Limit.Upper != 1.57 {
		t.Fatalf("shoulder limit\nhave %+v", sh.Limit)
	}
	if r.Joints[1].Type != Fixed {
		t.Fatalf("wrist type\nhave %q\nwant fixed", r.Joints[1].Type)
	}

	if r.Materials[0].Name != "steel" {
		t.Fatalf("robot material\nhave %q\nwant steel", r.Materials[0].Name)
	}
}

func TestCheck(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			"duplicate link",
			`<robot name="r"><link name="a"/><link name="a"/></robot>`,
			"duplicate link name",
		},
		{
			"undefined parent",
			`<robot name="r"><link name="a"/><link name="b"/>
			 <joint name="j" type="fixed"><parent link="x"/><child link="b"/></joint></robot>`,
			"undefined parent link",
		},
		{
			"revolute without limit",
			`<robot name="r"><link name="a"/><link name="b"/>
			 <joint name="j" type="revolute"><parent link="a"/><child link="b"/></joint></robot>`,
			"requires a limit",
		},
		{
			"two roots",
			`<robot name="r"><link name="a"/><link name="b"/><link name="c"/>
			 <joint name="j" type="fixed"><parent link="a"/><child link="b"/></joint></robot>`,
			"exactly one root",
		},
		{
			"detached joint cycle",
			`<robot name="r"><link name="a"/><link name="b"/><link name="c"/>
			 <joint name="j" type="fixed"><parent link="b"/><child link="c"/></joint>
			 <joint name="k" type="fixed"><parent link="c"/><child link="b"/></joint></robot>`,
			"not reachable",
		},
		{
			"unknown joint type",
			`<robot name="r"><link name="a"/><link name="b"/>
			 <joint name="j" type="helical"><parent link="a"/><child link="b"/></joint></robot>`,
			"invalid type",
		},
	}
	for _, c := range cases {
		r, err := Decode(strings.NewReader(c.doc))
		if err != nil {
			t.Fatalf("%s: Decode failed:\n%v", c.name, err)
		}
		err = r.Check()
		if err == nil || !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: Check\nhave %v\nwant error containing %q", c.name, err, c.want)
		}
	}
}

func TestBadAttr(t *testing.T) {
	_, err := Decode(strings.NewReader(
		`<robot name="r"><link name="a"><visual><origin xyz="1 2"/><geometry><sphere radius="1"/></geometry></visual></link></robot>`))
	if err == nil {
		t.Fatal("Decode should reject a 2-element xyz attribute")
	}
}

func TestResolveMesh(t *testing.T) {
	dir := filepath.Join("assets", "panda")
	cases := [][2]string{
		{"package://panda/meshes/link0.obj", filepath.Join(dir, "meshes", "link0.obj")},
		{"meshes/link0.obj", filepath.Join(dir, "meshes", "link0.obj")},
		{"file:///tmp/x.obj", "/tmp/x.obj"},
		{"/tmp/x.obj", "/tmp/x.obj"},
	}
	for _, c := range cases {
		if have := ResolveMesh(c[0], dir); have != c[1] {
			t.Fatalf("ResolveMesh(%q)\nhave %q\nwant %q", c[0], have, c[1])
		}
	}
}
