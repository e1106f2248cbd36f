// Copyright 2023 The robomesh authors. All rights reserved.

// Package linear implements math for 3D robot visualization.
//
// Vectors and matrices use float64 throughout, which is the
// precision robot descriptions are authored in. Matrices are
// column-major.
package linear

import (
	"math"
)

// V3 is a 3-component vector of float64.
type V3 [3]float64

// Add sets u to contain v + w.
func (u *V3) Add(v, w *V3) {
	for i := range u {
		u[i] = v[i] + w[i]
	}
}

// Sub sets u to contain v - w.
func (u *V3) Sub(v, w *V3) {
	for i := range u {
		u[i] = v[i] - w[i]
	}
}

// Scale sets u to contain s ⋅ v.
func (u *V3) Scale(s float64, v *V3) {
	for i := range u {
		u[i] = s * v[i]
	}
}

// Dot returns v ⋅ w.
func (v *V3) Dot(w *V3) (d float64) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *V3) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Norm sets u to contain v normalized.
// v must not have zero length.
func (u *V3) Norm(v *V3) {
	u.Scale(1/v.Len(), v)
}

// Cross sets u to contain v × w.
func (u *V3) Cross(v, w *V3) {
	*u = V3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Mul sets u to contain m ⋅ v.
func (u *V3) Mul(m *M3, v *V3) {
	var r V3
	for i := range v {
		for j := range r {
			r[j] += m[i][j] * v[i]
		}
	}
	*u = r
}

// V4 is a 4-component vector of float64.
type V4 [4]float64

// Add sets u to contain v + w.
func (u *V4) Add(v, w *V4) {
	for i := range u {
		u[i] = v[i] + w[i]
	}
}

// Sub sets u to contain v - w.
func (u *V4) Sub(v, w *V4) {
	for i := range u {
		u[i] = v[i] - w[i]
	}
}

// Scale sets u to contain s ⋅ v.
func (u *V4) Scale(s float64, v *V4) {
	for i := range u {
		u[i] = s * v[i]
	}
}

// Dot returns v ⋅ w.
func (v *V4) Dot(w *V4) (d float64) {
	for i := range v {
		d += v[i] * w[i]
	}
	return
}

// Len returns the length of v.
func (v *V4) Len() float64 {
	return math.Sqrt(v.Dot(v))
}

// Norm sets u to contain v normalized.
// v must not have zero length.
func (u *V4) Norm(v *V4) {
	u.Scale(1/v.Len(), v)
}

// Mul sets u to contain m ⋅ v.
func (u *V4) Mul(m *M4, v *V4) {
	var r V4
	for i := range v {
		for j := range r {
			r[j] += m[i][j] * v[i]
		}
	}
	*u = r
}
