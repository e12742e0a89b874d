// Package coords holds the affine matrices used to place content on a page.
package coords

import (
	"errors"
	"math"
)

// Matrix is a PDF transformation [a b c d e f].
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Multiply returns m×o, i.e. m applied first, then o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det, -m[1] / det, -m[2] / det, m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det, (m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// VerticalScale is the length of the transformed unit y vector.
func (m Matrix) VerticalScale() float64 { return math.Hypot(m[2], m[3]) }

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }
func Rotate(angle float64) Matrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// Rect is an axis-aligned box in user space.
type Rect struct{ LLX, LLY, URX, URY float64 }

// FromTop converts a box given with a top-down y (as in variables) to PDF
// user space on a page of the given height.
func FromTop(x, y, w, h, pageHeight float64) Rect {
	return Rect{LLX: x, LLY: pageHeight - y - h, URX: x + w, URY: pageHeight - y}
}

// Placement maps the unit square onto r, as used by the cm before Do.
func (r Rect) Placement() Matrix {
	return Scale(r.URX-r.LLX, r.URY-r.LLY).Multiply(Translate(r.LLX, r.LLY))
}
