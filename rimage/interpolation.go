package rimage

import (
	"math"

	"github.com/golang/geo/r2"

	"go.viam.com/lanemask/utils"
)

// BilinearSample interpolates channel c of img at the sub-pixel location pt. Neighbors that fall
// outside of the image contribute 0, so points more than a pixel outside of the frame read as 0.
func BilinearSample(img *Image, pt r2.Point, c int) float64 {
	x0 := int(math.Floor(pt.X))
	y0 := int(math.Floor(pt.Y))
	if x0 < -1 || y0 < -1 || x0 >= img.width || y0 >= img.height {
		return 0
	}
	fx := pt.X - float64(x0)
	fy := pt.Y - float64(y0)

	sample := func(x, y int) float64 {
		if !img.In(x, y) {
			return 0
		}
		return float64(img.Sample(x, y, c))
	}
	top := (1-fx)*sample(x0, y0) + fx*sample(x0+1, y0)
	bottom := (1-fx)*sample(x0, y0+1) + fx*sample(x0+1, y0+1)
	return (1-fy)*top + fy*bottom
}

// Warp builds an image of the given size by reading every output pixel from img at the location
// returned by mapping. Samples are bilinearly interpolated and rounded.
func Warp(img *Image, width, height int, mapping func(u, v float64) (float64, float64)) (*Image, error) {
	out, err := NewImage(width, height, img.channels)
	if err != nil {
		return nil, err
	}
	utils.ParallelForEachRow(height, func(v int) {
		for u := 0; u < width; u++ {
			x, y := mapping(float64(u), float64(v))
			pt := r2.Point{X: x, Y: y}
			for c := 0; c < img.channels; c++ {
				out.SetSample(u, v, c, clampUint8(math.Round(BilinearSample(img, pt, c))))
			}
		}
	})
	return out, nil
}

func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
