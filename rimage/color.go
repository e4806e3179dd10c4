package rimage

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"go.viam.com/lanemask/utils"
)

// Fixed-point BT.601 luma weights, scaled by 2^14.
const (
	lumaShift = 14
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
)

// Luma converts an RGB sample to gray as Y = 0.299 R + 0.587 G + 0.114 B using the same
// rounded fixed-point arithmetic as common image libraries.
func Luma(r, g, b uint8) uint8 {
	return uint8((lumaR*uint32(r) + lumaG*uint32(g) + lumaB*uint32(b) + (1 << (lumaShift - 1))) >> lumaShift)
}

// Gray returns the single channel luma image. A gray input is returned as a copy.
func (i *Image) Gray() *Image {
	if i.channels == 1 {
		return i.Clone()
	}
	out := NewGrayImage(i.width, i.height)
	utils.ParallelForEachRow(i.height, func(y int) {
		for x := 0; x < i.width; x++ {
			r, g, b := i.RGB(x, y)
			out.data[y*i.width+x] = Luma(r, g, b)
		}
	})
	return out
}

// HLS returns hue, lightness and saturation of an RGB sample using the 8-bit convention of
// common image libraries: hue is halved into 0..180, lightness and saturation are scaled to
// 0..255 and rounded.
func HLS(r, g, b uint8) (h, l, s uint8) {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	hue, sat, light := c.Hsl()
	h = uint8(utils.ClampF64(math.Round(hue/2), 0, 180))
	l = uint8(utils.ClampF64(math.Round(light*255), 0, 255))
	s = uint8(utils.ClampF64(math.Round(sat*255), 0, 255))
	return
}

// HLSChannel selects a channel of the HLS conversion.
type HLSChannel int

// The HLS channels in storage order.
const (
	HueChannel HLSChannel = iota
	LightnessChannel
	SaturationChannel
)

// HLSPlane converts a color image to HLS and returns a single channel of it.
func (i *Image) HLSPlane(channel HLSChannel) (*Image, error) {
	if i.channels != 3 {
		return nil, errors.Errorf("HLS conversion needs a 3 channel image, got %d", i.channels)
	}
	if channel < HueChannel || channel > SaturationChannel {
		return nil, errors.Errorf("unknown HLS channel %d", channel)
	}
	out := NewGrayImage(i.width, i.height)
	utils.ParallelForEachRow(i.height, func(y int) {
		for x := 0; x < i.width; x++ {
			h, l, s := HLS(i.RGB(x, y))
			switch channel {
			case HueChannel:
				out.data[y*i.width+x] = h
			case LightnessChannel:
				out.data[y*i.width+x] = l
			case SaturationChannel:
				out.data[y*i.width+x] = s
			}
		}
	})
	return out, nil
}
