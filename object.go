// Copyright 2023 The robomesh authors. All rights reserved.

package robomesh

import (
	"math/rand"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/robomesh/robomesh/linear"
	"github.com/robomesh/robomesh/meshcat"
)

var objCount atomic.Uint64

func autoName(prefix string, n *atomic.Uint64) string {
	return prefix + strconv.FormatUint(n.Add(1)-1, 10)
}

// Object is a rigid body with a fixed geometry and a
// mutable pose, color, opacity and visibility.
type Object struct {
	name    string
	geom    meshcat.Geometry
	pose    linear.M4
	color   [3]float64
	opacity float64
	visible bool

	texture    *meshcat.Texture
	image      *meshcat.Image
	textureErr error
	scale      linear.V3

	wireframe    bool
	vertexColors bool
	influences   []float64

	// Flags consumed by the next flush.
	dirtyObject bool
	dirtyProps  bool

	scene *Scene
}

// ObjectOption configures an Object at construction.
type ObjectOption func(*Object)

// WithName sets the registry name. An empty name gets an
// automatic obj%d one.
func WithName(name string) ObjectOption {
	return func(o *Object) { o.name = name }
}

// WithColor sets the RGB color, channels in [0, 1]. The
// default color is random.
func WithColor(r, g, b float64) ObjectOption {
	return func(o *Object) { o.color = [3]float64{r, g, b} }
}

// WithOpacity sets the opacity in [0, 1].
func WithOpacity(opacity float64) ObjectOption {
	return func(o *Object) { o.opacity = opacity }
}

// WithPose sets the initial pose.
func WithPose(pose *linear.M4) ObjectOption {
	return func(o *Object) { o.pose = *pose }
}

// WithWireframe renders the object as a wireframe.
func WithWireframe() ObjectOption {
	return func(o *Object) { o.wireframe = true }
}

// WithVertexColors colors the object per vertex instead of
// with a flat material color.
func WithVertexColors() ObjectOption {
	return func(o *Object) { o.vertexColors = true }
}

// WithTexture uses the PNG file at path as an image
// texture instead of the flat color.
func WithTexture(path string) ObjectOption {
	return func(o *Object) {
		tex, img, err := meshcat.NewPNGTexture(path)
		if err != nil {
			// Surfaced when the object is built.
			o.textureErr = err
			return
		}
		o.texture, o.image = tex, img
	}
}

func newObject(geom meshcat.Geometry, opts []ObjectOption) *Object {
	o := &Object{
		geom:    geom,
		color:   [3]float64{rand.Float64(), rand.Float64(), rand.Float64()},
		opacity: 1,
		visible: true,
		scale:   linear.V3{1, 1, 1},
	}
	o.pose.I()
	for _, opt := range opts {
		opt(o)
	}
	if o.name == "" {
		o.name = autoName("obj", &objCount)
	}
	return o
}

// NewSphere creates a sphere with the given radius.
func NewSphere(radius float64, opts ...ObjectOption) *Object {
	return newObject(meshcat.NewSphere(radius), opts)
}

// NewCuboid creates a box with the given side lengths.
func NewCuboid(lx, ly, lz float64, opts ...ObjectOption) *Object {
	return newObject(meshcat.NewBox(lx, ly, lz), opts)
}

// NewCube creates a box with equal side lengths.
func NewCube(length float64, opts ...ObjectOption) *Object {
	return NewCuboid(length, length, length, opts...)
}

// NewCylinder creates a cylinder with its symmetry axis
// along z.
func NewCylinder(radius, length float64, opts ...ObjectOption) *Object {
	return newObject(meshcat.NewCylinder(radius, length, 50), opts)
}

// NewMesh creates an object from a mesh file, uniformly
// scaled.
func NewMesh(path string, scale float64, opts ...ObjectOption) (*Object, error) {
	g, err := meshcat.NewMeshFile(path)
	if err != nil {
		return nil, err
	}
	o := newObject(g, opts)
	o.scale = linear.V3{scale, scale, scale}
	return o, nil
}

// Name returns the registry name.
func (o *Object) Name() string { return o.name }

// Pose returns the current pose.
func (o *Object) Pose() linear.M4 { return o.pose }

// SetPose replaces the pose. The change reaches the viewer
// on the next render.
func (o *Object) SetPose(m *linear.M4) { o.pose = *m }

// Pos returns the translation part of the pose.
func (o *Object) Pos() linear.V3 {
	return o.pose.Translation()
}

// SetPos replaces the translation part of the pose.
func (o *Object) SetPos(p *linear.V3) {
	o.pose.SetTranslation(p)
}

// SetRot replaces the rotation part of the pose.
func (o *Object) SetRot(r *linear.M3) {
	o.pose.SetRotation(r)
}

// Color returns the RGB color.
func (o *Object) Color() [3]float64 { return o.color }

// SetColor replaces the color. Colors are not animatable;
// during an animation session the change is refused.
func (o *Object) SetColor(r, g, b float64) {
	if o.scene != nil && o.scene.animating() {
		o.scene.log.Warn("color is not animatable, ignoring",
			zap.String("name", o.name))
		return
	}
	o.color = [3]float64{r, g, b}
	o.dirtyObject = true
}

// Opacity returns the opacity.
func (o *Object) Opacity() float64 { return o.opacity }

// SetOpacity replaces the opacity.
func (o *Object) SetOpacity(opacity float64) {
	o.opacity = opacity
	if o.scene != nil && o.scene.animating() {
		// Opacity animates as a material property track.
		o.scene.anim.anim.SetProperty(o.scene.anim.frame, o.path(),
			"material.opacity", meshcat.TypeNumber, opacity)
		return
	}
	o.dirtyObject = true
}

// Visible reports whether the object is shown.
func (o *Object) Visible() bool { return o.visible }

// SetVisible shows or hides the object.
func (o *Object) SetVisible(v bool) {
	o.visible = v
	o.dirtyProps = true
}

// Show makes the object visible.
func (o *Object) Show() { o.SetVisible(true) }

// Hide makes the object invisible.
func (o *Object) Hide() { o.SetVisible(false) }

func (o *Object) path() meshcat.Path {
	return meshcat.SceneRoot.Append(o.name)
}

// build lowers the object into its set_object form.
func (o *Object) build() (*meshcat.Object, error) {
	if o.textureErr != nil {
		return nil, o.textureErr
	}
	m := meshcat.NewLambert(o.color[0], o.color[1], o.color[2], o.opacity)
	m.Wireframe = o.wireframe
	m.VertexColors = o.vertexColors
	obj := meshcat.NewObject(o.geom, m)
	if o.texture != nil {
		obj.SetTexture(o.texture, o.image)
	}
	if o.scale != (linear.V3{1, 1, 1}) {
		obj.SetLocalScale(o.scale[0], o.scale[1], o.scale[2])
	}
	return obj, nil
}

func (o *Object) leafObjects() []*Object { return []*Object{o} }

func (o *Object) refresh() error { return nil }
