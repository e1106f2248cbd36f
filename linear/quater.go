// Copyright 2023 The robomesh authors. All rights reserved.

package linear

import (
	"math"
)

// Q is a quaternion of float64.
type Q struct {
	V V3
	R float64
}

// I makes q an identity quaternion.
func (q *Q) I() { *q = Q{R: 1} }

// Mul sets q to contain l ⋅ r.
func (q *Q) Mul(l, r *Q) {
	var v, w V3
	v.Scale(r.R, &l.V)
	w.Scale(l.R, &r.V)
	v.Add(&v, &w)
	w.Cross(&l.V, &r.V)
	d := l.V.Dot(&r.V)
	q.V.Add(&v, &w)
	q.R = l.R*r.R - d
}

// Len returns the length of q.
func (q *Q) Len() float64 {
	return math.Sqrt(q.V.Dot(&q.V) + q.R*q.R)
}

// Norm sets q to contain p normalized.
// p must not have zero length.
func (q *Q) Norm(p *Q) {
	s := 1 / p.Len()
	q.V.Scale(s, &p.V)
	q.R = s * p.R
}

// FromAxisAngle sets q to contain the rotation of angle
// radians about axis. axis must have unit length.
func (q *Q) FromAxisAngle(axis *V3, angle float64) {
	s, c := math.Sincos(angle / 2)
	q.V.Scale(s, axis)
	q.R = c
}

// FromM3 sets q to contain the rotation described by n.
// n must be a proper rotation matrix.
func (q *Q) FromM3(n *M3) {
	// Shepperd's method needs the branch with the
	// largest diagonal contribution to stay away
	// from the square root of a near-zero value.
	t := n[0][0] + n[1][1] + n[2][2]
	switch {
	case t > 0:
		s := math.Sqrt(t+1) * 2
		q.R = s / 4
		q.V[0] = (n[1][2] - n[2][1]) / s
		q.V[1] = (n[2][0] - n[0][2]) / s
		q.V[2] = (n[0][1] - n[1][0]) / s
	case n[0][0] > n[1][1] && n[0][0] > n[2][2]:
		s := math.Sqrt(1+n[0][0]-n[1][1]-n[2][2]) * 2
		q.R = (n[1][2] - n[2][1]) / s
		q.V[0] = s / 4
		q.V[1] = (n[1][0] + n[0][1]) / s
		q.V[2] = (n[2][0] + n[0][2]) / s
	case n[1][1] > n[2][2]:
		s := math.Sqrt(1+n[1][1]-n[0][0]-n[2][2]) * 2
		q.R = (n[2][0] - n[0][2]) / s
		q.V[0] = (n[1][0] + n[0][1]) / s
		q.V[1] = s / 4
		q.V[2] = (n[2][1] + n[1][2]) / s
	default:
		s := math.Sqrt(1+n[2][2]-n[0][0]-n[1][1]) * 2
		q.R = (n[0][1] - n[1][0]) / s
		q.V[0] = (n[2][0] + n[0][2]) / s
		q.V[1] = (n[2][1] + n[1][2]) / s
		q.V[2] = s / 4
	}
}

// ToM3 sets m to contain the rotation described by q.
// q must have unit length.
func (q *Q) ToM3(m *M3) {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.R
	m[0] = V3{1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w)}
	m[1] = V3{2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w)}
	m[2] = V3{2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y)}
}
