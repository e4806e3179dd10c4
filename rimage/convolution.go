package rimage

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lanemask/utils"
)

// MaxSobelKernelSize is the largest aperture accepted by SobelKernels.
const MaxSobelKernelSize = 31

// reflect101 maps p into [0, n) by mirroring without repeating the edge sample:
// gfedcb|abcdefgh|gfedcba, OpenCV's default border.
func reflect101(p, n int) int {
	if n == 1 {
		return 0
	}
	for p < 0 || p >= n {
		if p < 0 {
			p = -p
		} else {
			p = 2*n - 2 - p
		}
	}
	return p
}

// SobelKernels returns the separable Sobel coefficients for derivative orders dx and dy with
// the given odd aperture: kx filters along rows and ky along columns. An aperture of 1 means
// no smoothing across the derivative, as in the usual 3-tap [-1 0 1] difference.
func SobelKernels(dx, dy, ksize int) (kx, ky []float64, err error) {
	if ksize <= 0 || ksize%2 == 0 || ksize > MaxSobelKernelSize {
		return nil, nil, errors.Errorf("sobel kernel size must be odd and in 1..%d, got %d", MaxSobelKernelSize, ksize)
	}
	if dx < 0 || dy < 0 || dx+dy == 0 {
		return nil, nil, errors.Errorf("invalid sobel derivative order dx=%d dy=%d", dx, dy)
	}
	ksizeX, ksizeY := ksize, ksize
	if ksizeX == 1 && dx > 0 {
		ksizeX = 3
	}
	if ksizeY == 1 && dy > 0 {
		ksizeY = 3
	}
	if dx >= ksizeX || dy >= ksizeY {
		return nil, nil, errors.Errorf("derivative order dx=%d dy=%d too high for kernel size %d", dx, dy, ksize)
	}
	return sobelTaps(ksizeX, dx), sobelTaps(ksizeY, dy), nil
}

// sobelTaps builds the binomial smoothing taps of the given size and differentiates them order
// times.
func sobelTaps(ksize, order int) []float64 {
	switch {
	case ksize == 1:
		return []float64{1}
	case ksize == 3 && order == 0:
		return []float64{1, 2, 1}
	case ksize == 3 && order == 1:
		return []float64{-1, 0, 1}
	case ksize == 3:
		return []float64{1, -2, 1}
	}

	taps := make([]int, ksize+1)
	taps[0] = 1
	for i := 0; i < ksize-order-1; i++ {
		oldval := taps[0]
		for j := 1; j <= ksize; j++ {
			newval := taps[j] + taps[j-1]
			taps[j-1] = oldval
			oldval = newval
		}
	}
	for i := 0; i < order; i++ {
		oldval := -taps[0]
		for j := 1; j <= ksize; j++ {
			newval := taps[j-1] - taps[j]
			taps[j-1] = oldval
			oldval = newval
		}
	}

	out := make([]float64, ksize)
	for i := range out {
		out[i] = float64(taps[i])
	}
	return out
}

// SepFilter2D correlates m with kx along rows and then with ky along columns, reflecting at the
// borders.
func SepFilter2D(m *mat.Dense, kx, ky []float64) *mat.Dense {
	h, w := m.Dims()
	rowPass := mat.NewDense(h, w, nil)
	ax := len(kx) / 2
	utils.ParallelForEachRow(h, func(y int) {
		src := m.RawRowView(y)
		dst := rowPass.RawRowView(y)
		for x := 0; x < w; x++ {
			sum := float64(0)
			for i, k := range kx {
				if k == 0 {
					continue
				}
				sum += src[reflect101(x+i-ax, w)] * k
			}
			dst[x] = sum
		}
	})

	result := mat.NewDense(h, w, nil)
	ay := len(ky) / 2
	utils.ParallelForEachRow(h, func(y int) {
		dst := result.RawRowView(y)
		for i, k := range ky {
			if k == 0 {
				continue
			}
			src := rowPass.RawRowView(reflect101(y+i-ay, h))
			for x := 0; x < w; x++ {
				dst[x] += src[x] * k
			}
		}
	})
	return result
}

// GrayToDense copies a single channel image into a float64 matrix of shape height x width.
func GrayToDense(img *Image) (*mat.Dense, error) {
	if img.Channels() != 1 {
		return nil, errors.Errorf("expected a 1 channel image, got %d channels", img.Channels())
	}
	if img.Width() == 0 || img.Height() == 0 {
		return nil, errors.Errorf("cannot filter an empty %dx%d image", img.Width(), img.Height())
	}
	data := make([]float64, len(img.data))
	for i, v := range img.data {
		data[i] = float64(v)
	}
	return mat.NewDense(img.Height(), img.Width(), data), nil
}

// Sobel computes the (dx, dy) order derivative of a single channel image with reflect-101
// borders, as float64 without clamping.
func Sobel(img *Image, dx, dy, ksize int) (*mat.Dense, error) {
	kx, ky, err := SobelKernels(dx, dy, ksize)
	if err != nil {
		return nil, err
	}
	m, err := GrayToDense(img)
	if err != nil {
		return nil, err
	}
	return SepFilter2D(m, kx, ky), nil
}
