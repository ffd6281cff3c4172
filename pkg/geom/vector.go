// Package geom holds the small amount of 3D geometry shared by the camera,
// detection and observer packages.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vector3 is a 3D position in world coordinates (meters).
type Vector3 = r3.Vec

// V returns the vector (x, y, z).
func V(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

// ApproxEqual reports whether every component of a and b differs by at most tol.
func ApproxEqual(a, b Vector3, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol &&
		math.Abs(a.Y-b.Y) <= tol &&
		math.Abs(a.Z-b.Z) <= tol
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Vector3) float64 {
	return r3.Norm(r3.Sub(a, b))
}
