package threshold

import (
	"context"
	"image"

	"go.viam.com/lanemask/logging"
	"go.viam.com/lanemask/rimage"
)

// Result holds the combined mask and the four detector masks it was built from. All masks have
// the size of the input image.
type Result struct {
	Combined *BinaryMask
	Abs      *BinaryMask
	Mag      *BinaryMask
	Dir      *BinaryMask
	Color    *BinaryMask
}

// Combine applies abs OR (mag AND dir) OR color sample-wise. All four masks must be the same size.
func Combine(abs, mag, dir, color *BinaryMask) (*BinaryMask, error) {
	for _, other := range []struct {
		name string
		mask *BinaryMask
	}{{"mag", mag}, {"dir", dir}, {"color", color}} {
		if !abs.SameSize(other.mask) {
			return nil, NewSizeMismatchError(other.name, abs, other.mask)
		}
	}
	combined := NewBinaryMask(abs.Width(), abs.Height())
	for i := range combined.data {
		combined.data[i] = abs.data[i] | (mag.data[i] & dir.data[i]) | color.data[i]
	}
	return combined, nil
}

// CombinedThresh runs the four detectors with DefaultConfig and combines them.
func CombinedThresh(img *rimage.Image) (*Result, error) {
	p, err := NewPipeline(DefaultConfig(), logging.NewBlankLogger("threshold"))
	if err != nil {
		return nil, err
	}
	return p.Run(context.Background(), img)
}

// Mosaic lays the masks and the input out in a 2x3 grid for inspection: the three gradient
// masks on top, then the color mask, the input and the combined mask.
func (r *Result) Mosaic(input *rimage.Image, tileWidth int) (image.Image, error) {
	return rimage.DiagnosticMosaic([]rimage.Tile{
		{Label: "abs sobel", Image: r.Abs},
		{Label: "magnitude", Image: r.Mag},
		{Label: "direction", Image: r.Dir},
		{Label: "hls saturation", Image: r.Color},
		{Label: "input", Image: input},
		{Label: "combined", Image: r.Combined},
	}, 3, tileWidth)
}
