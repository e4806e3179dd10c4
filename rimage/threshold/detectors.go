package threshold

import (
	"math"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lanemask/rimage"
	"go.viam.com/lanemask/utils"
)

// Orientation selects the axis of a directional gradient.
type Orientation int

const (
	// OrientX differentiates along columns, finding vertical edges.
	OrientX Orientation = iota
	// OrientY differentiates along rows, finding horizontal edges.
	OrientY
)

func (o Orientation) String() string {
	if o == OrientY {
		return "y"
	}
	return "x"
}

// ParseOrientation accepts "x" or "y", case-insensitively.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return OrientX, nil
	case "y":
		return OrientY, nil
	}
	return OrientX, errors.Errorf("unknown gradient orientation %q, expected x or y", s)
}

// grayInput returns the luma image the gradient detectors work on.
func grayInput(op string, img *rimage.Image) (*rimage.Image, error) {
	switch img.Channels() {
	case 1:
		return img, nil
	case 3:
		return img.Gray(), nil
	default:
		return nil, NewInputShapeError(op, 3, img.Channels())
	}
}

// AbsSobelThresh marks samples whose absolute derivative along orient, rescaled so the image
// maximum is 255 and truncated to 8 bits, lies in bounds. A color image is converted to gray
// first. An image without any gradient yields an empty mask.
func AbsSobelThresh(img *rimage.Image, orient Orientation, ksize int, bounds Range) (*BinaryMask, error) {
	if err := bounds.Validate(0, 255); err != nil {
		return nil, errors.Wrap(err, "abs_sobel_thresh")
	}
	gray, err := grayInput("abs_sobel_thresh", img)
	if err != nil {
		return nil, err
	}
	vf, err := rimage.NewSobelField(gray, ksize)
	if err != nil {
		return nil, err
	}
	mask, _ := absSobelMask(vf, orient, bounds)
	return mask, nil
}

// MagThresh marks samples whose gradient magnitude, rescaled so the image maximum is 255 and
// truncated to 8 bits, lies in bounds.
func MagThresh(img *rimage.Image, ksize int, bounds Range) (*BinaryMask, error) {
	if err := bounds.Validate(0, 255); err != nil {
		return nil, errors.Wrap(err, "mag_thresh")
	}
	gray, err := grayInput("mag_thresh", img)
	if err != nil {
		return nil, err
	}
	vf, err := rimage.NewSobelField(gray, ksize)
	if err != nil {
		return nil, err
	}
	mask, _ := magMask(vf, bounds)
	return mask, nil
}

// DirThreshold marks samples whose undirected gradient angle atan2(|dy|, |dx|), in radians,
// lies in bounds. Samples without gradient have angle 0.
func DirThreshold(img *rimage.Image, ksize int, bounds Range) (*BinaryMask, error) {
	if err := bounds.Validate(0, math.Pi/2); err != nil {
		return nil, errors.Wrap(err, "dir_threshold")
	}
	gray, err := grayInput("dir_threshold", img)
	if err != nil {
		return nil, err
	}
	vf, err := rimage.NewSobelField(gray, ksize)
	if err != nil {
		return nil, err
	}
	return dirMask(vf, bounds), nil
}

// HLSThresh marks samples whose HLS saturation (0..255) lies in bounds. It needs the original
// color image.
func HLSThresh(img *rimage.Image, bounds Range) (*BinaryMask, error) {
	if img.Channels() != 3 {
		return nil, NewInputShapeError("hls_thresh", 3, img.Channels())
	}
	if err := bounds.Validate(0, 255); err != nil {
		return nil, errors.Wrap(err, "hls_thresh")
	}
	sat, err := img.HLSPlane(rimage.SaturationChannel)
	if err != nil {
		return nil, err
	}
	mask := NewBinaryMask(sat.Width(), sat.Height())
	utils.ParallelForEachPixel(sat.Size(), func(x, y int) {
		mask.Set(x, y, bounds.Contains(float64(sat.Sample(x, y, 0))))
	})
	return mask, nil
}

// absSobelMask thresholds 255*|d|/max. degenerate is true when the image has no gradient along
// orient, in which case the mask is empty.
func absSobelMask(vf *rimage.VectorField2D, orient Orientation, bounds Range) (mask *BinaryMask, degenerate bool) {
	var abs *mat.Dense
	if orient == OrientY {
		abs = vf.AbsYField()
	} else {
		abs = vf.AbsXField()
	}
	return scaledMask(abs, bounds, func(v, maxV float64) float64 { return 255 * v / maxV })
}

// magMask thresholds |g| / (max/255).
func magMask(vf *rimage.VectorField2D, bounds Range) (mask *BinaryMask, degenerate bool) {
	return scaledMask(vf.MagnitudeField(), bounds, func(v, maxV float64) float64 { return v / (maxV / 255) })
}

func dirMask(vf *rimage.VectorField2D, bounds Range) *BinaryMask {
	dir := vf.AbsDirectionField()
	mask := NewBinaryMask(vf.Width(), vf.Height())
	for y := 0; y < vf.Height(); y++ {
		for x, angle := range dir.RawRowView(y) {
			mask.Set(x, y, bounds.Contains(angle))
		}
	}
	return mask
}

// scaledMask rescales a non-negative field to 0..255 with scale, truncates to uint8 and
// thresholds. A zero maximum short-circuits to an empty mask.
func scaledMask(field *mat.Dense, bounds Range, scale func(v, maxV float64) float64) (*BinaryMask, bool) {
	h, w := field.Dims()
	mask := NewBinaryMask(w, h)
	maxV := rimage.MaxValue(field)
	if maxV == 0 {
		return mask, true
	}
	for y := 0; y < h; y++ {
		for x, v := range field.RawRowView(y) {
			scaled := uint8(math.Min(scale(v, maxV), 255))
			mask.Set(x, y, bounds.Contains(float64(scaled)))
		}
	}
	return mask, false
}
