// Copyright 2023 The robomesh authors. All rights reserved.

package linear

import (
	"math"
)

// FromAxisAngle sets m to contain the rotation of angle
// radians about axis. axis must have unit length.
func (m *M3) FromAxisAngle(axis *V3, angle float64) {
	var q Q
	q.FromAxisAngle(axis, angle)
	q.ToM3(m)
}

// FromRPY sets m to contain the extrinsic x-y-z rotation
// given by roll, pitch and yaw, in radians. This is the
// fixed-axis convention robot descriptions use.
func (m *M3) FromRPY(roll, pitch, yaw float64) {
	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)
	m[0] = V3{cy * cp, sy * cp, -sp}
	m[1] = V3{cy*sp*sr - sy*cr, sy*sp*sr + cy*cr, cp * sr}
	m[2] = V3{cy*sp*cr + sy*sr, sy*sp*cr - cy*sr, cp * cr}
}

// Translation returns the translation part of m.
func (m *M4) Translation() V3 {
	return V3{m[3][0], m[3][1], m[3][2]}
}

// SetTranslation sets the translation part of m to v.
func (m *M4) SetTranslation(v *V3) {
	m[3][0], m[3][1], m[3][2] = v[0], v[1], v[2]
}

// Rotation returns the upper-left 3x3 part of m.
func (m *M4) Rotation() (n M3) {
	for i := range n {
		for j := range n[i] {
			n[i][j] = m[i][j]
		}
	}
	return
}

// SetRotation sets the upper-left 3x3 part of m to n.
func (m *M4) SetRotation(n *M3) {
	for i := range n {
		for j := range n[i] {
			m[i][j] = n[i][j]
		}
	}
}

// FromTR sets m to contain the rigid transform with
// translation t and rotation r.
func (m *M4) FromTR(t *V3, r *M3) {
	m.I()
	m.SetRotation(r)
	m.SetTranslation(t)
}

// TQ decomposes the rigid transform m into a translation
// and a unit rotation quaternion. The linear part of m
// must be a proper rotation.
func (m *M4) TQ() (t V3, q Q) {
	t = m.Translation()
	r := m.Rotation()
	q.FromM3(&r)
	q.Norm(&q)
	return
}

// NearIdentity returns whether every element of m is within
// eps of the identity matrix.
func (m *M4) NearIdentity(eps float64) bool {
	var id M4
	id.I()
	for i := range m {
		for j := range m[i] {
			if math.Abs(m[i][j]-id[i][j]) > eps {
				return false
			}
		}
	}
	return true
}
