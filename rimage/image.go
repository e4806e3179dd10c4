// Package rimage holds the image representation shared by the lane thresholding packages along
// with the low level image operations they are built from: luma and HLS conversion, Sobel
// derivatives, gradient fields, file I/O and diagnostic drawing.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// Image is a grid of unsigned 8-bit samples with an explicit channel count. Color images have
// 3 channels in R,G,B order, grayscale images have 1. Samples are stored row-major with the
// channels of a pixel interleaved.
type Image struct {
	width, height, channels int
	data                    []uint8
}

// NewImage returns a zeroed image of the given shape.
func NewImage(width, height, channels int) (*Image, error) {
	if width < 0 || height < 0 {
		return nil, errors.Errorf("invalid image size %dx%d", width, height)
	}
	if channels != 1 && channels != 3 {
		return nil, errors.Errorf("unsupported channel count %d, expected 1 or 3", channels)
	}
	return newImage(width, height, channels), nil
}

func newImage(width, height, channels int) *Image {
	return &Image{
		width:    width,
		height:   height,
		channels: channels,
		data:     make([]uint8, width*height*channels),
	}
}

// NewGrayImage returns a zeroed single channel image.
func NewGrayImage(width, height int) *Image {
	return newImage(width, height, 1)
}

// NewColorImage returns a zeroed three channel image.
func NewColorImage(width, height int) *Image {
	return newImage(width, height, 3)
}

// NewImageFromStdImage copies a standard library image. Gray images stay single channel,
// everything else becomes R,G,B with alpha dropped.
func NewImageFromStdImage(img image.Image) *Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	switch typed := img.(type) {
	case *Image:
		return typed.Clone()
	case *image.Gray:
		out := NewGrayImage(w, h)
		for y := 0; y < h; y++ {
			row := typed.Pix[typed.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			copy(out.data[y*w:(y+1)*w], row[:w])
		}
		return out
	case *image.Gray16:
		out := NewGrayImage(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.data[y*w+x] = uint8(typed.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y >> 8)
			}
		}
		return out
	}

	out := NewColorImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			k := (y*w + x) * 3
			out.data[k] = c.R
			out.data[k+1] = c.G
			out.data[k+2] = c.B
		}
	}
	return out
}

// NewImageFromSamples wraps a copy of row-major interleaved samples.
func NewImageFromSamples(width, height, channels int, samples []uint8) (*Image, error) {
	img, err := NewImage(width, height, channels)
	if err != nil {
		return nil, err
	}
	if len(samples) != len(img.data) {
		return nil, errors.Errorf("expected %d samples for a %dx%dx%d image but got %d",
			len(img.data), width, height, channels, len(samples))
	}
	copy(img.data, samples)
	return img, nil
}

// Width returns the number of columns.
func (i *Image) Width() int {
	return i.width
}

// Height returns the number of rows.
func (i *Image) Height() int {
	return i.height
}

// Channels returns 1 for grayscale and 3 for color images.
func (i *Image) Channels() int {
	return i.channels
}

// Size returns the image size as a point.
func (i *Image) Size() image.Point {
	return image.Point{i.width, i.height}
}

// In reports whether (x, y) lies inside the image.
func (i *Image) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < i.width && y < i.height
}

func (i *Image) kxy(x, y int) int {
	return ((y * i.width) + x) * i.channels
}

// Sample returns channel c of pixel (x, y).
func (i *Image) Sample(x, y, c int) uint8 {
	return i.data[i.kxy(x, y)+c]
}

// SetSample sets channel c of pixel (x, y). Only the stage producing an image should call it.
func (i *Image) SetSample(x, y, c int, v uint8) {
	i.data[i.kxy(x, y)+c] = v
}

// RGB returns the color of (x, y). Gray images report the same value for all three.
func (i *Image) RGB(x, y int) (r, g, b uint8) {
	k := i.kxy(x, y)
	if i.channels == 1 {
		return i.data[k], i.data[k], i.data[k]
	}
	return i.data[k], i.data[k+1], i.data[k+2]
}

// SetRGB sets the color of (x, y) on a three channel image.
func (i *Image) SetRGB(x, y int, r, g, b uint8) {
	k := i.kxy(x, y)
	i.data[k] = r
	i.data[k+1] = g
	i.data[k+2] = b
}

// Samples returns a copy of the underlying row-major samples.
func (i *Image) Samples() []uint8 {
	out := make([]uint8, len(i.data))
	copy(out, i.data)
	return out
}

// Clone returns a deep copy.
func (i *Image) Clone() *Image {
	return &Image{i.width, i.height, i.channels, i.Samples()}
}

// SameSize reports whether both images have the same width and height.
func (i *Image) SameSize(other *Image) bool {
	return i.width == other.width && i.height == other.height
}

// ColorModel returns the model matching the channel count.
func (i *Image) ColorModel() color.Model {
	if i.channels == 1 {
		return color.GrayModel
	}
	return color.RGBAModel
}

// Bounds returns the image rectangle anchored at the origin.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// At implements image.Image.
func (i *Image) At(x, y int) color.Color {
	if !i.In(x, y) {
		return color.RGBA{}
	}
	if i.channels == 1 {
		return color.Gray{i.data[i.kxy(x, y)]}
	}
	r, g, b := i.RGB(x, y)
	return color.RGBA{r, g, b, 255}
}
