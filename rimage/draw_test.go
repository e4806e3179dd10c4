package rimage

import (
	"image"
	"testing"

	"go.viam.com/test"
)

func TestDiagnosticMosaic(t *testing.T) {
	img := testPattern()
	tiles := []Tile{
		{"one", img}, {"two", img.Gray()}, {"three", img},
		{"four", img}, {"five", img},
	}
	mosaic, err := DiagnosticMosaic(tiles, 3, 60)
	test.That(t, err, test.ShouldBeNil)
	// 60 wide tiles of a 6x4 image are 40 tall
	cellW := 60 + 2*mosaicPadding
	cellH := 40 + mosaicCaptionHeight + 2*mosaicPadding
	test.That(t, mosaic.Bounds(), test.ShouldResemble, image.Rect(0, 0, 3*cellW, 2*cellH))

	// the sixth cell is empty and stays white
	r, g, b, _ := mosaic.At(2*cellW+cellW/2, cellH+cellH/2).RGBA()
	test.That(t, []uint32{r, g, b}, test.ShouldResemble, []uint32{0xffff, 0xffff, 0xffff})

	_, err = DiagnosticMosaic(nil, 3, 60)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = DiagnosticMosaic(tiles, 0, 60)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = DiagnosticMosaic([]Tile{{"empty", NewGrayImage(0, 0)}}, 1, 60)
	test.That(t, err, test.ShouldNotBeNil)
}
