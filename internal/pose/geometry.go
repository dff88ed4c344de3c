package pose

import (
	"math"

	"github.com/gymgate/engine/internal/domain"
)

// angleAt computes the angle in degrees at vertex b of the triangle
// a-b-c, in the 0..180 range. Computed in the 2D image plane.
func angleAt(a, b, c domain.Point) float64 {
	v1x, v1y := a.X-b.X, a.Y-b.Y
	v2x, v2y := c.X-b.X, c.Y-b.Y

	m1 := math.Hypot(v1x, v1y)
	m2 := math.Hypot(v2x, v2y)
	if m1 == 0 || m2 == 0 {
		return 0
	}

	cos := (v1x*v2x + v1y*v2y) / (m1 * m2)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// midpoint returns the point halfway between a and b.
func midpoint(a, b domain.Point) domain.Point {
	return domain.Point{
		X: (a.X + b.X) / 2,
		Y: (a.Y + b.Y) / 2,
		Z: (a.Z + b.Z) / 2,
	}
}

// distance is the 2D euclidean distance between two points.
func distance(a, b domain.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// tiltDegrees is the angle of the line a->b relative to horizontal,
// folded into the 0..90 range.
func tiltDegrees(a, b domain.Point) float64 {
	dx := math.Abs(b.X - a.X)
	dy := math.Abs(b.Y - a.Y)
	if dx == 0 && dy == 0 {
		return 0
	}
	return math.Atan2(dy, dx) * 180 / math.Pi
}
