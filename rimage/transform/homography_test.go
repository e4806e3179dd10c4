package transform

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestNewHomography(t *testing.T) {
	_, err := NewHomography([]float64{})
	test.That(t, err, test.ShouldBeError, errors.New("input to NewHomography must have length of 9. Has length of 0"))

	vals := []float64{2.32700501e-01, -8.33535395e-03, -3.61894025e+01, -1.90671303e-03, 2.35303232e-01, 8.38582614e+00, -6.39101664e-05, -4.64582754e-05, 1.00000000e+00}
	h, err := NewHomography(vals)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.At(0, 2), test.ShouldEqual, -3.61894025e+01)
	test.That(t, h.Col(1), test.ShouldResemble, [3]float64{-8.33535395e-03, 2.35303232e-01, -4.64582754e-05})
}

func TestEstimateHomography(t *testing.T) {
	truth, err := NewHomography([]float64{
		42.0, 3.5, 120,
		-2.25, 38.0, 85,
		0.0012, -0.0008, 1,
	})
	test.That(t, err, test.ShouldBeNil)

	var src, dst []r2.Point
	for y := 0; y < 6; y++ {
		for x := 0; x < 9; x++ {
			pt := r2.Point{X: float64(x), Y: float64(y)}
			src = append(src, pt)
			dst = append(dst, truth.Apply(pt))
		}
	}
	h, err := EstimateHomography(src, dst)
	test.That(t, err, test.ShouldBeNil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			test.That(t, h.At(r, c), test.ShouldAlmostEqual, truth.At(r, c), 1e-6)
		}
	}
	mapped := h.Apply(r2.Point{X: 2.5, Y: 3.5})
	expected := truth.Apply(r2.Point{X: 2.5, Y: 3.5})
	test.That(t, mapped.X, test.ShouldAlmostEqual, expected.X, 1e-6)
	test.That(t, mapped.Y, test.ShouldAlmostEqual, expected.Y, 1e-6)
}

func TestEstimateHomographyErrors(t *testing.T) {
	pts := []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	_, err := EstimateHomography(pts, pts)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "at least 4")

	_, err = EstimateHomography(append(pts, r2.Point{X: 1, Y: 1}), pts)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "differ in length")
}
