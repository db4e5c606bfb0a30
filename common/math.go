package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the tolerance used for near-equality checks on world positions.
const Epsilon = 0.001

func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func Abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Wrap returns v wrapped into [0, size). A non-positive size returns v.
func Wrap(v, size float32) float32 {
	if size <= 0 {
		return v
	}
	w := float32(math.Mod(float64(v), float64(size)))
	if w < 0 {
		w += size
	}
	return w
}

// MulVec3 multiplies two vectors component-wise.
func MulVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// AbsVec3 returns the component-wise absolute value.
func AbsVec3(v mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{Abs(v[0]), Abs(v[1]), Abs(v[2])}
}

// NearlyEqual reports whether every component of a and b is within tol.
func NearlyEqual(a, b mgl32.Vec3, tol float32) bool {
	return Abs(a[0]-b[0]) <= tol && Abs(a[1]-b[1]) <= tol && Abs(a[2]-b[2]) <= tol
}
