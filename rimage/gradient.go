package rimage

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Vec2D represents the gradient of an image at a point as its two partial derivatives.
type Vec2D struct {
	X, Y float64
}

// Magnitude returns sqrt(x² + y²).
func (g Vec2D) Magnitude() float64 {
	return math.Sqrt(g.X*g.X + g.Y*g.Y)
}

// AbsDirection returns atan2(|y|, |x|), the angle folded into [0, pi/2]. It is 0 when both
// derivatives are 0.
func (g Vec2D) AbsDirection() float64 {
	return math.Atan2(math.Abs(g.Y), math.Abs(g.X))
}

// VectorField2D stores the horizontal and vertical derivatives of an image, allowing one to
// retrieve the gradient for any given (x,y) point. Both fields are height x width matrices.
type VectorField2D struct {
	width  int
	height int

	dx, dy *mat.Dense
}

// NewSobelField computes the first order Sobel derivatives of a single channel image with the
// given aperture.
func NewSobelField(gray *Image, ksize int) (*VectorField2D, error) {
	dx, err := Sobel(gray, 1, 0, ksize)
	if err != nil {
		return nil, err
	}
	dy, err := Sobel(gray, 0, 1, ksize)
	if err != nil {
		return nil, err
	}
	return VectorField2DFromDense(dx, dy)
}

// VectorField2DFromDense wraps two derivative matrices of the same size.
func VectorField2DFromDense(dx, dy *mat.Dense) (*VectorField2D, error) {
	xh, xw := dx.Dims()
	yh, yw := dy.Dims()
	if xh != yh || xw != yw {
		return nil, errors.Errorf("cannot make VectorField2D from two matrices of different sizes (%v,%v), (%v,%v)",
			xw, xh, yw, yh)
	}
	return &VectorField2D{xw, xh, dx, dy}, nil
}

// Width returns the number of columns.
func (vf *VectorField2D) Width() int {
	return vf.width
}

// Height returns the number of rows.
func (vf *VectorField2D) Height() int {
	return vf.height
}

// DX returns the horizontal derivative. Callers must not modify it.
func (vf *VectorField2D) DX() *mat.Dense {
	return vf.dx
}

// DY returns the vertical derivative. Callers must not modify it.
func (vf *VectorField2D) DY() *mat.Dense {
	return vf.dy
}

// apply builds a new field with f evaluated on every gradient.
func (vf *VectorField2D) apply(f func(g Vec2D) float64) *mat.Dense {
	out := mat.NewDense(vf.height, vf.width, nil)
	for y := 0; y < vf.height; y++ {
		dxRow, dyRow, outRow := vf.dx.RawRowView(y), vf.dy.RawRowView(y), out.RawRowView(y)
		for x := range outRow {
			outRow[x] = f(Vec2D{dxRow[x], dyRow[x]})
		}
	}
	return out
}

// AbsXField returns |dx|.
func (vf *VectorField2D) AbsXField() *mat.Dense {
	return vf.apply(func(g Vec2D) float64 { return math.Abs(g.X) })
}

// AbsYField returns |dy|.
func (vf *VectorField2D) AbsYField() *mat.Dense {
	return vf.apply(func(g Vec2D) float64 { return math.Abs(g.Y) })
}

// MagnitudeField returns all the magnitudes of the gradient in the image.
func (vf *VectorField2D) MagnitudeField() *mat.Dense {
	return vf.apply(Vec2D.Magnitude)
}

// AbsDirectionField returns atan2(|dy|, |dx|) for every point, in [0, pi/2].
func (vf *VectorField2D) AbsDirectionField() *mat.Dense {
	return vf.apply(Vec2D.AbsDirection)
}

// MaxValue returns the largest element of m.
func MaxValue(m *mat.Dense) float64 {
	return mat.Max(m)
}
