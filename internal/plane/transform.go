// Package plane renders tasks as positioned markers on the priority grid
// and runs the pointer interactions against them. Each Plane instance owns
// its own marker registry and mode; nothing in this package is shared
// module state.
package plane

import "math"

// Domain coordinates live in [-100, 100] on both axes, origin at center,
// Y up. Display coordinates live in a square canvas of side Size, origin
// top-left, Y down. Only Y inverts between the two.
const (
	DomainMin   = -100.0
	DomainMax   = 100.0
	DefaultSize = 500.0
)

// Point is a coordinate pair in either space; the Transform methods say
// which.
type Point struct {
	X float64
	Y float64
}

// Round2 rounds to two decimal places, the precision used for redisplay
// and for coordinates embedded in URLs.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Transform converts between domain and display space for one canvas size.
// The forward and inverse directions are the single shared implementation
// of the mapping; the Y inversion is deliberate and applies only to Y.
type Transform struct {
	Size float64
}

func NewTransform(size float64) Transform {
	if size <= 0 {
		size = DefaultSize
	}
	return Transform{Size: size}
}

func (t Transform) scale() float64 {
	return t.Size / (DomainMax - DomainMin)
}

// ToDisplay maps a domain point to canvas space.
func (t Transform) ToDisplay(p Point) Point {
	half := t.Size / 2
	return Point{
		X: Round2(half + t.scale()*p.X),
		Y: Round2(half - t.scale()*p.Y),
	}
}

// ToDomain maps a canvas point back to domain space. It never clamps:
// pointer events outside the viewBox yield valid out-of-range domain
// coordinates and the caller decides what to do with them.
func (t Transform) ToDomain(p Point) Point {
	half := t.Size / 2
	return Point{
		X: Round2((p.X - half) / t.scale()),
		Y: Round2(-(p.Y - half) / t.scale()),
	}
}

// InBounds reports whether a domain point lies on the plane.
func InBounds(p Point) bool {
	return p.X >= DomainMin && p.X <= DomainMax && p.Y >= DomainMin && p.Y <= DomainMax
}
