package shoal

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
)

// Affine is a 2D affine matrix laid out as [a, b, c, d, tx, ty]:
//
//	| a  c  tx |
//	| b  d  ty |
//	| 0  0   1 |
type Affine [6]float64

// Identity is the identity affine matrix.
var Identity = Affine{1, 0, 0, 1, 0, 0}

// computeLocalTransform builds a node's local matrix from its geometry.
//
// Composition order:
//
//	Translate(-CenterX, -CenterY) -> Scale -> Rotate -> Translate(X, Y)
//
// so the center point always lands on (X, Y) in the parent's space.
func computeLocalTransform(x, y, cx, cy, sx, sy, rotation float64) Affine {
	sin, cos := math.Sincos(rotation)

	// After Scale * Translate(-center):
	//   a=sx, b=0, c=0, d=sy, tx=-cx*sx, ty=-cy*sy
	preTx := -cx * sx
	preTy := -cy * sy

	// After Rotate:
	ra := cos * sx
	rb := sin * sx
	rc := -sin * sy
	rd := cos * sy
	rtx := cos*preTx - sin*preTy
	rty := sin*preTx + cos*preTy

	// After Translate(X, Y):
	return Affine{ra, rb, rc, rd, rtx + x, rty + y}
}

// Multiply returns m * child, i.e. child applied first, then m.
func (m Affine) Multiply(c Affine) Affine {
	return Affine{
		m[0]*c[0] + m[2]*c[1],
		m[1]*c[0] + m[3]*c[1],
		m[0]*c[2] + m[2]*c[3],
		m[1]*c[2] + m[3]*c[3],
		m[0]*c[4] + m[2]*c[5] + m[4],
		m[1]*c[4] + m[3]*c[5] + m[5],
	}
}

// Invert computes the inverse matrix. ok is false if the matrix is singular
// (determinant ~ 0), which happens for zero scale.
func (m Affine) Invert() (inv Affine, ok bool) {
	det := m[0]*m[3] - m[2]*m[1]
	if det > -1e-12 && det < 1e-12 {
		return Identity, false
	}
	invDet := 1.0 / det
	a := m[3] * invDet
	b := -m[1] * invDet
	c := -m[2] * invDet
	d := m[0] * invDet
	return Affine{
		a, b, c, d,
		-(a*m[4] + c*m[5]),
		-(b*m[4] + d*m[5]),
	}, true
}

// Apply transforms the point (x, y).
func (m Affine) Apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// GeoM converts the matrix to an ebiten.GeoM.
func (m Affine) GeoM() ebiten.GeoM {
	var g ebiten.GeoM
	g.SetElement(0, 0, m[0])
	g.SetElement(1, 0, m[1])
	g.SetElement(0, 1, m[2])
	g.SetElement(1, 1, m[3])
	g.SetElement(0, 2, m[4])
	g.SetElement(1, 2, m[5])
	return g
}

// boundsAABB returns the axis-aligned bounding box of the local rectangle
// (0, 0, w, h) after applying m.
func (m Affine) boundsAABB(w, h float64) Rect {
	x0, y0 := m.Apply(0, 0)
	x1, y1 := m.Apply(w, 0)
	x2, y2 := m.Apply(w, h)
	x3, y3 := m.Apply(0, h)
	minX := math.Min(math.Min(x0, x1), math.Min(x2, x3))
	minY := math.Min(math.Min(y0, y1), math.Min(y2, y3))
	maxX := math.Max(math.Max(x0, x1), math.Max(x2, x3))
	maxY := math.Max(math.Max(y0, y1), math.Max(y2, y3))
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
