package threshold

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lanemask/rimage"
)

// grayEqualImage returns a color image whose three channels are equal, so its luma is exact.
func grayEqualImage(w, h int, seed int64, maxV int) *rimage.Image {
	rnd := rand.New(rand.NewSource(seed))
	img := rimage.NewColorImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rnd.Intn(maxV + 1))
			img.SetRGB(x, y, v, v, v)
		}
	}
	return img
}

func mapImage(img *rimage.Image, f func(v uint8) uint8) *rimage.Image {
	out := rimage.NewColorImage(img.Width(), img.Height())
	for y := 0; y < img.Height(); y++ {
		for x := 0; x < img.Width(); x++ {
			r, g, b := img.RGB(x, y)
			out.SetRGB(x, y, f(r), f(g), f(b))
		}
	}
	return out
}

func colorfulImage(w, h int, seed int64) *rimage.Image {
	rnd := rand.New(rand.NewSource(seed))
	img := rimage.NewColorImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGB(x, y, uint8(rnd.Intn(256)), uint8(rnd.Intn(256)), uint8(rnd.Intn(256)))
		}
	}
	return img
}

func uniformImage(w, h int, v uint8) *rimage.Image {
	return mapImage(rimage.NewColorImage(w, h), func(uint8) uint8 { return v })
}

func assertBinary(t *testing.T, m *BinaryMask, w, h int) {
	t.Helper()
	test.That(t, m.Width(), test.ShouldEqual, w)
	test.That(t, m.Height(), test.ShouldEqual, h)
	for _, row := range m.Rows() {
		for _, v := range row {
			test.That(t, v <= 1, test.ShouldBeTrue)
		}
	}
}

func TestDetectorsProduceBinaryMasks(t *testing.T) {
	img := colorfulImage(17, 13, 1)
	abs, err := AbsSobelThresh(img, OrientX, 3, Inclusive(20, 100))
	test.That(t, err, test.ShouldBeNil)
	assertBinary(t, abs, 17, 13)

	absY, err := AbsSobelThresh(img, OrientY, 3, Inclusive(20, 100))
	test.That(t, err, test.ShouldBeNil)
	assertBinary(t, absY, 17, 13)

	mag, err := MagThresh(img, 5, Inclusive(30, 100))
	test.That(t, err, test.ShouldBeNil)
	assertBinary(t, mag, 17, 13)

	dir, err := DirThreshold(img, 15, Inclusive(0.7, 1.3))
	test.That(t, err, test.ShouldBeNil)
	assertBinary(t, dir, 17, 13)

	color, err := HLSThresh(img, LowerExclusive(100, 255))
	test.That(t, err, test.ShouldBeNil)
	assertBinary(t, color, 17, 13)

	// gradient detectors accept gray input as is
	grayAbs, err := AbsSobelThresh(img.Gray(), OrientX, 3, Inclusive(20, 100))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, grayAbs.Rows(), test.ShouldResemble, abs.Rows())

	_, err = MagThresh(img, 4, Inclusive(0, 255))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDetectorsRejectInvalidBounds(t *testing.T) {
	img := colorfulImage(9, 7, 2)
	for _, bounds := range []Range{Inclusive(0, 300), Inclusive(-5, 100), Inclusive(200, 100), Inclusive(math.NaN(), 10)} {
		_, err := AbsSobelThresh(img, OrientX, 3, bounds)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "abs_sobel_thresh")

		_, err = MagThresh(img, 3, bounds)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "mag_thresh")

		_, err = HLSThresh(img, bounds)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "hls_thresh")
	}

	// angles are bounded by pi/2, not 255
	for _, bounds := range []Range{Inclusive(0, 2), Inclusive(-0.1, 1), Inclusive(1.3, 0.7)} {
		_, err := DirThreshold(img, 3, bounds)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "dir_threshold")
	}
	_, err := DirThreshold(img, 3, Inclusive(0, math.Pi/2))
	test.That(t, err, test.ShouldBeNil)
}

func TestAbsSobelVerticalEdge(t *testing.T) {
	img, err := rimage.NewImageFromSamples(6, 2, 1, []uint8{
		0, 0, 0, 200, 200, 200,
		0, 0, 0, 200, 200, 200,
	})
	test.That(t, err, test.ShouldBeNil)

	mask, err := AbsSobelThresh(img, OrientX, 3, Inclusive(50, 255))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Rows(), test.ShouldResemble, [][]uint8{
		{0, 0, 1, 1, 0, 0},
		{0, 0, 1, 1, 0, 0},
	})

	// no horizontal edges at all
	mask, err = AbsSobelThresh(img, OrientY, 3, Inclusive(0, 255))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Count(), test.ShouldEqual, 0)
}

func TestExposureScalingInvariance(t *testing.T) {
	img := grayEqualImage(23, 19, 7, 127)
	brighter := mapImage(img, func(v uint8) uint8 { return 2 * v })

	for _, bounds := range []Range{Inclusive(50, 255), Inclusive(20, 100), Inclusive(0, 10)} {
		for _, orient := range []Orientation{OrientX, OrientY} {
			a, err := AbsSobelThresh(img, orient, 3, bounds)
			test.That(t, err, test.ShouldBeNil)
			b, err := AbsSobelThresh(brighter, orient, 3, bounds)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, b.Rows(), test.ShouldResemble, a.Rows())
		}
		for _, ksize := range []int{1, 3, 5} {
			a, err := MagThresh(img, ksize, bounds)
			test.That(t, err, test.ShouldBeNil)
			b, err := MagThresh(brighter, ksize, bounds)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, b.Rows(), test.ShouldResemble, a.Rows())
		}
	}
}

func TestDirSignInversionInvariance(t *testing.T) {
	img := grayEqualImage(21, 18, 11, 255)
	inverted := mapImage(img, func(v uint8) uint8 { return 255 - v })

	for _, ksize := range []int{3, 15} {
		for _, bounds := range []Range{Inclusive(0.7, 1.3), Inclusive(0, 0.5)} {
			a, err := DirThreshold(img, ksize, bounds)
			test.That(t, err, test.ShouldBeNil)
			b, err := DirThreshold(inverted, ksize, bounds)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, b.Rows(), test.ShouldResemble, a.Rows())
		}
	}

	// the full quadrant accepts everything
	all, err := DirThreshold(img, 3, Inclusive(0, 1.5707963267948966))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, all.Count(), test.ShouldEqual, 21*18)
}

func TestHLSThreshBoundaries(t *testing.T) {
	img := rimage.NewColorImage(3, 1)
	img.SetRGB(0, 0, 71, 31, 31) // saturation exactly 100
	img.SetRGB(1, 0, 255, 0, 0)  // saturation exactly 255
	img.SetRGB(2, 0, 90, 90, 90) // saturation 0

	mask, err := HLSThresh(img, LowerExclusive(100, 255))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Rows(), test.ShouldResemble, [][]uint8{{0, 1, 0}})

	// with an inclusive lower bound the 100 sample passes
	mask, err = HLSThresh(img, Inclusive(100, 255))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.Rows(), test.ShouldResemble, [][]uint8{{1, 1, 0}})

	_, err = HLSThresh(img.Gray(), LowerExclusive(100, 255))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInputShape), test.ShouldBeTrue)
}

func TestUniformImageHasNoGradient(t *testing.T) {
	img := uniformImage(10, 10, 77)
	abs, err := AbsSobelThresh(img, OrientX, 3, Inclusive(0, 255))
	test.That(t, err, test.ShouldBeNil)
	assertBinary(t, abs, 10, 10)
	test.That(t, abs.Count(), test.ShouldEqual, 0)

	mag, err := MagThresh(img, 3, Inclusive(0, 255))
	test.That(t, err, test.ShouldBeNil)
	assertBinary(t, mag, 10, 10)
	test.That(t, mag.Count(), test.ShouldEqual, 0)
}

func TestCombine(t *testing.T) {
	mk := func(rows [][]uint8) *BinaryMask {
		m, err := NewBinaryMaskFromRows(rows)
		test.That(t, err, test.ShouldBeNil)
		return m
	}
	abs := mk([][]uint8{{1, 0}, {0, 0}})
	mag := mk([][]uint8{{0, 1}, {1, 0}})
	dir := mk([][]uint8{{0, 1}, {0, 0}})
	color := mk([][]uint8{{0, 0}, {0, 1}})

	combined, err := Combine(abs, mag, dir, color)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, combined.Rows(), test.ShouldResemble, [][]uint8{{1, 1}, {0, 1}})

	// (abs OR mag) AND (dir OR color) would give [[0,1],[0,0]]
	test.That(t, combined.Get(0, 0), test.ShouldBeTrue)

	_, err = Combine(abs, mag, NewBinaryMask(3, 2), color)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrSizeMismatch), test.ShouldBeTrue)
}

func TestCombinedThreshUniformGray(t *testing.T) {
	img := uniformImage(32, 24, 128)
	res, err := CombinedThresh(img)
	test.That(t, err, test.ShouldBeNil)
	for _, m := range []*BinaryMask{res.Combined, res.Abs, res.Mag, res.Dir, res.Color} {
		assertBinary(t, m, 32, 24)
		test.That(t, m.Count(), test.ShouldEqual, 0)
	}

	_, err = CombinedThresh(img.Gray())
	test.That(t, errors.Is(err, ErrInputShape), test.ShouldBeTrue)
}
