package rimage

import (
	"math"
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestVec2D(t *testing.T) {
	g := Vec2D{3, -4}
	test.That(t, g.Magnitude(), test.ShouldEqual, 5.0)
	test.That(t, g.AbsDirection(), test.ShouldAlmostEqual, math.Atan2(4, 3))
	test.That(t, Vec2D{}.AbsDirection(), test.ShouldEqual, 0.0)
	test.That(t, Vec2D{0, -2}.AbsDirection(), test.ShouldAlmostEqual, math.Pi/2)
}

func TestSobelField(t *testing.T) {
	// a bright square on a dark background
	img := NewGrayImage(9, 9)
	for y := 3; y < 6; y++ {
		for x := 3; x < 6; x++ {
			img.SetSample(x, y, 0, 200)
		}
	}
	vf, err := NewSobelField(img, 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vf.Width(), test.ShouldEqual, 9)
	test.That(t, vf.Height(), test.ShouldEqual, 9)

	// left edge points right, top edge points down
	left := Vec2D{vf.DX().At(4, 2), vf.DY().At(4, 2)}
	test.That(t, left.X, test.ShouldBeGreaterThan, 0.0)
	test.That(t, left.Y, test.ShouldEqual, 0.0)
	top := Vec2D{vf.DX().At(2, 4), vf.DY().At(2, 4)}
	test.That(t, top.Y, test.ShouldBeGreaterThan, 0.0)
	test.That(t, top.X, test.ShouldEqual, 0.0)

	abs := vf.AbsXField()
	test.That(t, mat.Min(abs), test.ShouldBeGreaterThanOrEqualTo, 0.0)
	test.That(t, abs.At(4, 2), test.ShouldEqual, left.X)
	test.That(t, vf.AbsYField().At(2, 4), test.ShouldEqual, top.Y)

	mag := vf.MagnitudeField()
	test.That(t, mag.At(4, 2), test.ShouldEqual, left.X)
	test.That(t, MaxValue(mag), test.ShouldBeGreaterThan, 0.0)

	dir := vf.AbsDirectionField()
	test.That(t, dir.At(4, 2), test.ShouldEqual, 0.0)
	test.That(t, dir.At(2, 4), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, dir.At(0, 0), test.ShouldEqual, 0.0)
	test.That(t, mat.Max(dir), test.ShouldBeLessThanOrEqualTo, math.Pi/2)
}

func TestVectorField2DFromDense(t *testing.T) {
	_, err := VectorField2DFromDense(mat.NewDense(2, 3, nil), mat.NewDense(3, 2, nil))
	test.That(t, err, test.ShouldNotBeNil)

	vf, err := VectorField2DFromDense(mat.NewDense(1, 2, []float64{1, -2}), mat.NewDense(1, 2, []float64{0, 2}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, vf.DX().At(0, 1), test.ShouldEqual, -2.0)
	test.That(t, vf.DY().At(0, 1), test.ShouldEqual, 2.0)
	test.That(t, vf.MagnitudeField().RawRowView(0), test.ShouldResemble, []float64{1, math.Sqrt(8)})
}
