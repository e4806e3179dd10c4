package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Homography is a 3x3 matrix (represented as a 2D array) mapping points of one plane onto
// another, here a calibration board onto the image. Indices are [row][column].
type Homography [3][3]float64

// NewHomography creates a Homography from a row-major slice of length 9.
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("input to NewHomography must have length of 9. Has length of %d", len(vals))
	}
	h := &Homography{}
	for i, v := range vals {
		h[i/3][i%3] = v
	}
	return h, nil
}

// At returns the value of the homography at the given row and column.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Col returns a column of the homography.
func (h *Homography) Col(col int) [3]float64 {
	return [3]float64{h[0][col], h[1][col], h[2][col]}
}

// Apply maps pt through the homography.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h.At(0, 0)*pt.X + h.At(0, 1)*pt.Y + h.At(0, 2)
	y := h.At(1, 0)*pt.X + h.At(1, 1)*pt.Y + h.At(1, 2)
	z := h.At(2, 0)*pt.X + h.At(2, 1)*pt.Y + h.At(2, 2)
	return r2.Point{X: x / z, Y: y / z}
}

// EstimateHomography computes the homography mapping src onto dst with the normalized direct
// linear transform. At least 4 correspondences in general position are required. The result is
// scaled so that its bottom right entry is 1.
func EstimateHomography(src, dst []r2.Point) (*Homography, error) {
	if len(src) != len(dst) {
		return nil, errors.Errorf("point sets differ in length: %d != %d", len(src), len(dst))
	}
	if len(src) < 4 {
		return nil, errors.Errorf("at least 4 point pairs are needed to estimate a homography, got %d", len(src))
	}
	srcN, tSrc := normalizePoints(src)
	dstN, tDst := normalizePoints(dst)

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range srcN {
		s, d := srcN[i], dstN[i]
		a.SetRow(2*i, []float64{-s.X, -s.Y, -1, 0, 0, 0, d.X * s.X, d.X * s.Y, d.X})
		a.SetRow(2*i+1, []float64{0, 0, 0, -s.X, -s.Y, -1, d.Y * s.X, d.Y * s.Y, d.Y})
	}
	h, ok := NullVector(a)
	if !ok {
		return nil, errors.New("homography SVD did not converge")
	}

	// undo normalization: H = T_dst^-1 * Hn * T_src
	var tDstInv, hm mat.Dense
	if err := tDstInv.Inverse(tDst); err != nil {
		return nil, errors.Wrap(err, "degenerate destination points")
	}
	hm.Mul(&tDstInv, mat.NewDense(3, 3, h))
	hm.Mul(&hm, tSrc)

	scale := hm.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		return nil, errors.New("degenerate homography")
	}
	hm.Scale(1/scale, &hm)
	return NewHomography(hm.RawMatrix().Data)
}
