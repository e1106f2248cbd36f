// Copyright 2023 The robomesh authors. All rights reserved.

package meshcat

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/robomesh/robomesh/linear"
)

const prefix = "meshcat: "

// Geometry is a lowered viewer geometry. Implementations
// are serialized verbatim into set_object commands.
type Geometry interface {
	// GeometryUUID returns the geometry's identity in the
	// viewer's resource tables.
	GeometryUUID() string
}

// BoxGeometry is an axis-aligned box.
type BoxGeometry struct {
	UUID   string  `msgpack:"uuid"`
	Type   string  `msgpack:"type"`
	Width  float64 `msgpack:"width"`
	Height float64 `msgpack:"height"`
	Depth  float64 `msgpack:"depth"`
}

// NewBox creates a box with the given side lengths.
func NewBox(lx, ly, lz float64) *BoxGeometry {
	return &BoxGeometry{
		UUID:   uuid.NewString(),
		Type:   "BoxGeometry",
		Width:  lx,
		Height: ly,
		Depth:  lz,
	}
}

func (g *BoxGeometry) GeometryUUID() string { return g.UUID }

// SphereGeometry is a UV sphere.
type SphereGeometry struct {
	UUID           string  `msgpack:"uuid"`
	Type           string  `msgpack:"type"`
	Radius         float64 `msgpack:"radius"`
	WidthSegments  int     `msgpack:"widthSegments"`
	HeightSegments int     `msgpack:"heightSegments"`
}

// NewSphere creates a sphere with the given radius.
func NewSphere(radius float64) *SphereGeometry {
	return &SphereGeometry{
		UUID:           uuid.NewString(),
		Type:           "SphereGeometry",
		Radius:         radius,
		WidthSegments:  32,
		HeightSegments: 16,
	}
}

func (g *SphereGeometry) GeometryUUID() string { return g.UUID }

// TypedArray is a packed attribute buffer: little-endian
// element bytes plus the type tag the viewer uses to
// reconstruct the typed array.
type TypedArray struct {
	ItemSize   int    `msgpack:"itemSize"`
	Type       string `msgpack:"type"`
	Array      []byte `msgpack:"array"`
	Normalized bool   `msgpack:"normalized"`
}

// Float32Array packs vecs into a 3-component float buffer.
func Float32Array(vecs []linear.V3) *TypedArray {
	b := make([]byte, 0, len(vecs)*3*4)
	for i := range vecs {
		for _, x := range vecs[i] {
			b = binary.LittleEndian.AppendUint32(b, math.Float32bits(float32(x)))
		}
	}
	return &TypedArray{ItemSize: 3, Type: "Float32Array", Array: b}
}

// Uint32Array packs triangle indices into an index buffer.
func Uint32Array(faces [][3]uint32) *TypedArray {
	b := make([]byte, 0, len(faces)*3*4)
	for i := range faces {
		for _, x := range faces[i] {
			b = binary.LittleEndian.AppendUint32(b, x)
		}
	}
	return &TypedArray{ItemSize: 3, Type: "Uint32Array", Array: b}
}

// BufferGeometry is an indexed triangle mesh, optionally
// with morph target attributes.
type BufferGeometry struct {
	UUID string     `msgpack:"uuid"`
	Type string     `msgpack:"type"`
	Data BufferData `msgpack:"data"`
}

// BufferData holds the attribute buffers of a BufferGeometry.
type BufferData struct {
	Attributes      map[string]*TypedArray   `msgpack:"attributes"`
	Index           *TypedArray              `msgpack:"index,omitempty"`
	MorphAttributes map[string][]*TypedArray `msgpack:"morphAttributes,omitempty"`
}

// NewTriMesh creates an indexed triangle mesh. colors may
// be nil; when present it holds one RGB value per vertex.
func NewTriMesh(vertices []linear.V3, faces [][3]uint32, colors []linear.V3) *BufferGeometry {
	g := &BufferGeometry{
		UUID: uuid.NewString(),
		Type: "BufferGeometry",
		Data: BufferData{
			Attributes: map[string]*TypedArray{
				"position": Float32Array(vertices),
			},
			Index: Uint32Array(faces),
		},
	}
	if colors != nil {
		g.Data.Attributes["color"] = Float32Array(colors)
	}
	return g
}

func (g *BufferGeometry) GeometryUUID() string { return g.UUID }

// AddMorphPositions registers an alternate vertex set that
// the viewer can interpolate toward without geometry
// recreation.
func (g *BufferGeometry) AddMorphPositions(vertices []linear.V3) {
	if g.Data.MorphAttributes == nil {
		g.Data.MorphAttributes = make(map[string][]*TypedArray)
	}
	g.Data.MorphAttributes["position"] = append(g.Data.MorphAttributes["position"], Float32Array(vertices))
}

// AddMorphColors registers per-vertex colors for a morph.
func (g *BufferGeometry) AddMorphColors(colors []linear.V3) {
	if g.Data.MorphAttributes == nil {
		g.Data.MorphAttributes = make(map[string][]*TypedArray)
	}
	g.Data.MorphAttributes["color"] = append(g.Data.MorphAttributes["color"], Float32Array(colors))
}

// MorphCount returns the number of registered morphs.
func (g *BufferGeometry) MorphCount() int {
	p := len(g.Data.MorphAttributes["position"])
	if c := len(g.Data.MorphAttributes["color"]); c > p {
		return c
	}
	return p
}

// NewCylinder creates a triangle mesh of a cylinder whose
// axis of rotational symmetry is z, which is the robotics
// convention. The viewer's native cylinder is y-aligned,
// so a mesh is generated instead.
func NewCylinder(radius, length float64, sections int) *BufferGeometry {
	if sections < 3 {
		sections = 50
	}
	h := length / 2
	n := uint32(sections)

	// Two rings plus two cap centers.
	verts := make([]linear.V3, 0, 2*sections+2)
	for i := 0; i < sections; i++ {
		s, c := math.Sincos(2 * math.Pi * float64(i) / float64(sections))
		verts = append(verts, linear.V3{radius * c, radius * s, -h})
	}
	for i := 0; i < sections; i++ {
		s, c := math.Sincos(2 * math.Pi * float64(i) / float64(sections))
		verts = append(verts, linear.V3{radius * c, radius * s, h})
	}
	bot := uint32(len(verts))
	verts = append(verts, linear.V3{0, 0, -h})
	top := uint32(len(verts))
	verts = append(verts, linear.V3{0, 0, h})

	faces := make([][3]uint32, 0, 4*sections)
	for i := uint32(0); i < n; i++ {
		j := (i + 1) % n
		// Side quad.
		faces = append(faces, [3]uint32{i, j, n + i}, [3]uint32{j, n + j, n + i})
		// Caps.
		faces = append(faces, [3]uint32{bot, j, i}, [3]uint32{top, n + i, n + j})
	}
	return NewTriMesh(verts, faces, nil)
}

// MeshFileGeometry carries a mesh file verbatim for the
// viewer to parse.
type MeshFileGeometry struct {
	UUID   string `msgpack:"uuid"`
	Type   string `msgpack:"type"`
	Format string `msgpack:"format"`
	Data   []byte `msgpack:"data"`
}

// Mesh file formats the viewer parses itself.
const (
	FormatOBJ = "obj"
	FormatDAE = "dae"
	FormatSTL = "stl"
)

// NewMeshFile loads a mesh file for the viewer to parse.
// The format is taken from the file extension.
func NewMeshFile(path string) (*MeshFileGeometry, error) {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		format = FormatOBJ
	case ".dae":
		format = FormatDAE
	case ".stl":
		format = FormatSTL
	default:
		return nil, errors.New(prefix + "unsupported mesh format of " + path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &MeshFileGeometry{
		UUID:   uuid.NewString(),
		Type:   "_meshfile_geometry",
		Format: format,
		Data:   data,
	}, nil
}

func (g *MeshFileGeometry) GeometryUUID() string { return g.UUID }
