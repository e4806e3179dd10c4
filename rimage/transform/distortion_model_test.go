package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lanemask/rimage"
)

func testModel() *DistortionModel {
	return &DistortionModel{
		ImageWidth:       64,
		ImageHeight:      48,
		CameraMatrix:     [9]float64{60, 0, 31.5, 0, 58, 23.5, 0, 0, 1},
		DistortionCoeffs: []float64{-0.25, 0.08, 0.001, -0.0005, 0.01},
	}
}

func testImage(width, height int) *rimage.Image {
	img := rimage.NewColorImage(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGB(x, y, uint8(x*3), uint8(y*5), uint8((x*y)%256))
		}
	}
	return img
}

func TestUndistortZeroDistortionIsIdentity(t *testing.T) {
	m := testModel()
	m.DistortionCoeffs = []float64{0, 0, 0, 0, 0}
	img := testImage(64, 48)

	out, err := m.Undistort(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Samples(), test.ShouldResemble, img.Samples())

	m.DistortionCoeffs = nil
	out, err = m.Undistort(img.Gray())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Samples(), test.ShouldResemble, img.Gray().Samples())
}

func TestUndistort(t *testing.T) {
	m := testModel()
	img := testImage(64, 48)
	out, err := m.Undistort(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Width(), test.ShouldEqual, 64)
	test.That(t, out.Height(), test.ShouldEqual, 48)
	test.That(t, out.Channels(), test.ShouldEqual, 3)

	// the principal point does not move
	r, g, b := out.RGB(31, 23)
	r0, g0, b0 := img.RGB(31, 23)
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{r0, g0, b0})

	// barrel distortion: the output corners still read from inside the frame
	r, g, b = out.RGB(0, 0)
	test.That(t, int(r)+int(g)+int(b), test.ShouldBeGreaterThan, 0)

	// pincushion distortion: the output corners read from outside the frame
	m.DistortionCoeffs = []float64{0.3, 0, 0, 0}
	out, err = m.Undistort(img)
	test.That(t, err, test.ShouldBeNil)
	r, g, b = out.RGB(0, 0)
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{0, 0, 0})
	r, g, b = out.RGB(63, 47)
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{0, 0, 0})
}

func TestUndistortOtherSize(t *testing.T) {
	m := testModel()
	img := testImage(32, 48)
	out, err := m.Undistort(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Width(), test.ShouldEqual, 32)
	test.That(t, out.Height(), test.ShouldEqual, 48)
	test.That(t, m.ImageWidth, test.ShouldEqual, 64)

	// the calibrated principal point still maps to itself
	r, g, b := out.RGB(31, 23)
	r0, g0, b0 := img.RGB(31, 23)
	test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{r0, g0, b0})

	m.DistortionCoeffs = nil
	wide := testImage(80, 60)
	out, err = m.Undistort(wide)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Samples(), test.ShouldResemble, wide.Samples())
}

func TestUndistortErrors(t *testing.T) {
	var m *DistortionModel
	_, err := m.Undistort(testImage(4, 4))
	test.That(t, errors.Is(err, ErrCalibrationUnavailable), test.ShouldBeTrue)

	m = testModel()
	_, err = m.Undistort(nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrCalibrationUnavailable), test.ShouldBeFalse)

	m.CameraMatrix[0] = 0
	_, err = m.Undistort(testImage(64, 48))
	test.That(t, errors.Is(err, ErrCalibrationUnavailable), test.ShouldBeTrue)

	m = testModel()
	m.CameraMatrix[1] = 0.5
	test.That(t, errors.Is(m.CheckValid(), ErrCalibrationUnavailable), test.ShouldBeTrue)

	m = testModel()
	m.DistortionCoeffs = []float64{1, 2, 3}
	test.That(t, errors.Is(m.CheckValid(), ErrCalibrationUnavailable), test.ShouldBeTrue)
}

func TestUndistortPoints(t *testing.T) {
	m := testModel()
	camera, err := m.CameraModel()
	test.That(t, err, test.ShouldBeNil)
	distort := camera.DistortionMap()

	ideal := []r2.Point{{X: 5, Y: 7}, {X: 31.5, Y: 23.5}, {X: 60, Y: 40}, {X: 12.25, Y: 44.5}}
	distorted := make([]r2.Point, len(ideal))
	for i, pt := range ideal {
		x, y := distort(pt.X, pt.Y)
		distorted[i] = r2.Point{X: x, Y: y}
	}
	back, err := m.UndistortPoints(distorted)
	test.That(t, err, test.ShouldBeNil)
	for i := range ideal {
		test.That(t, back[i].X, test.ShouldAlmostEqual, ideal[i].X, 1e-6)
		test.That(t, back[i].Y, test.ShouldAlmostEqual, ideal[i].Y, 1e-6)
	}
}

func TestProject(t *testing.T) {
	m := testModel()
	m.DistortionCoeffs = nil
	camera, err := m.CameraModel()
	test.That(t, err, test.ShouldBeNil)

	px := camera.Project(r3.Vector{X: 1, Y: -2, Z: 4})
	test.That(t, px.X, test.ShouldAlmostEqual, 60*0.25+31.5)
	test.That(t, px.Y, test.ShouldAlmostEqual, 58*-0.5+23.5)
	test.That(t, camera.Project(r3.Vector{X: 1, Y: 1}), test.ShouldResemble, r2.Point{X: -1, Y: -1})
}

func TestDistortionModelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calib", "model.json")
	m := testModel()
	test.That(t, m.Save(path), test.ShouldBeNil)

	loaded, err := LoadDistortionModel(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded, test.ShouldResemble, m)

	raw, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(raw), test.ShouldContainSubstring, `"distortion_coeffs"`)
	test.That(t, string(raw), test.ShouldContainSubstring, `"image_width": 64`)

	_, err = LoadDistortionModel(filepath.Join(dir, "missing.json"))
	test.That(t, errors.Is(err, ErrCalibrationUnavailable), test.ShouldBeTrue)

	bad := filepath.Join(dir, "bad.json")
	test.That(t, os.WriteFile(bad, []byte(`{"image_width": 4`), 0o600), test.ShouldBeNil)
	_, err = LoadDistortionModel(bad)
	test.That(t, errors.Is(err, ErrCalibrationUnavailable), test.ShouldBeTrue)

	var nilModel *DistortionModel
	test.That(t, errors.Is(nilModel.Save(path), ErrCalibrationUnavailable), test.ShouldBeTrue)
}

func TestNewDistortionModel(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 800, Fy: 780, Ppx: 320, Ppy: 240}
	m, err := NewDistortionModel(intrinsics, &BrownConrady{RadialK1: -0.2, RadialK3: 0.05, TangentialP1: 0.001})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.CameraMatrix, test.ShouldResemble, [9]float64{800, 0, 320, 0, 780, 240, 0, 0, 1})
	test.That(t, m.DistortionCoeffs, test.ShouldResemble, []float64{-0.2, 0, 0.001, 0, 0.05})
	test.That(t, m.Intrinsics(), test.ShouldResemble, intrinsics)

	_, err = NewDistortionModel(&PinholeCameraIntrinsics{Width: 640, Height: 480}, nil)
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
}

func TestIntrinsicsFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intrinsics.json")
	data := `{"width_px": 1280, "height_px": 720, "fx": 900.5, "fy": 901, "ppx": 640, "ppy": 360}`
	test.That(t, os.WriteFile(path, []byte(data), 0o600), test.ShouldBeNil)
	intrinsics, err := NewPinholeCameraIntrinsicsFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intrinsics.CheckValid(), test.ShouldBeNil)
	test.That(t, intrinsics.Fx, test.ShouldEqual, 900.5)

	pt := intrinsics.PixelToNormalized(r2.Point{X: 100, Y: 700})
	back := intrinsics.NormalizedToPixel(pt)
	test.That(t, back.X, test.ShouldAlmostEqual, 100.0)
	test.That(t, back.Y, test.ShouldAlmostEqual, 700.0)

	_, err = NewPinholeCameraIntrinsicsFromJSONFile(filepath.Join(t.TempDir(), "nope.json"))
	test.That(t, err, test.ShouldNotBeNil)

	var nilIntrinsics *PinholeCameraIntrinsics
	test.That(t, errors.Is(nilIntrinsics.CheckValid(), ErrNoIntrinsics), test.ShouldBeTrue)
}
