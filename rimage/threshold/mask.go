package threshold

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"go.viam.com/lanemask/rimage"
)

// BinaryMask is a single channel image whose samples are always 0 or 1.
type BinaryMask struct {
	width, height int
	data          []uint8
}

// NewBinaryMask returns an all-zero mask.
func NewBinaryMask(width, height int) *BinaryMask {
	return &BinaryMask{width, height, make([]uint8, width*height)}
}

// NewBinaryMaskFromRows builds a mask from rows of 0/1 values. Every row must have the same
// length and any other value is rejected.
func NewBinaryMaskFromRows(rows [][]uint8) (*BinaryMask, error) {
	height := len(rows)
	width := 0
	if height > 0 {
		width = len(rows[0])
	}
	m := NewBinaryMask(width, height)
	for y, row := range rows {
		if len(row) != width {
			return nil, errors.Errorf("row %d has %d samples, expected %d", y, len(row), width)
		}
		for x, v := range row {
			if v > 1 {
				return nil, errors.Errorf("sample (%d,%d) is %d, masks only hold 0 or 1", x, y, v)
			}
			m.data[y*width+x] = v
		}
	}
	return m, nil
}

// Width returns the number of columns.
func (m *BinaryMask) Width() int {
	return m.width
}

// Height returns the number of rows.
func (m *BinaryMask) Height() int {
	return m.height
}

// SameSize reports whether both masks have the same dimensions.
func (m *BinaryMask) SameSize(other *BinaryMask) bool {
	return m.width == other.width && m.height == other.height
}

// Get reports whether (x, y) is set.
func (m *BinaryMask) Get(x, y int) bool {
	return m.data[y*m.width+x] == 1
}

// Value returns the sample at (x, y), 0 or 1.
func (m *BinaryMask) Value(x, y int) uint8 {
	return m.data[y*m.width+x]
}

// Set sets or clears (x, y).
func (m *BinaryMask) Set(x, y int, on bool) {
	if on {
		m.data[y*m.width+x] = 1
	} else {
		m.data[y*m.width+x] = 0
	}
}

// Count returns the number of set samples.
func (m *BinaryMask) Count() int {
	n := 0
	for _, v := range m.data {
		n += int(v)
	}
	return n
}

// Rows returns a copy of the samples as rows.
func (m *BinaryMask) Rows() [][]uint8 {
	rows := make([][]uint8, m.height)
	for y := range rows {
		rows[y] = make([]uint8, m.width)
		copy(rows[y], m.data[y*m.width:(y+1)*m.width])
	}
	return rows
}

// Image returns the mask as a single channel rimage.Image holding 0 and 1.
func (m *BinaryMask) Image() *rimage.Image {
	img := rimage.NewGrayImage(m.width, m.height)
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			img.SetSample(x, y, 0, m.data[y*m.width+x])
		}
	}
	return img
}

// Picture renders the mask for viewing: set samples are white, the rest black.
func (m *BinaryMask) Picture() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.width, m.height))
	for i, v := range m.data {
		if v == 1 {
			img.Pix[i] = 255
		}
	}
	return img
}

// ColorModel implements image.Image.
func (m *BinaryMask) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds implements image.Image.
func (m *BinaryMask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// At implements image.Image with the same white on black rendering as Picture.
func (m *BinaryMask) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.width || y >= m.height || m.data[y*m.width+x] == 0 {
		return color.Gray{0}
	}
	return color.Gray{255}
}
