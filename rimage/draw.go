package rimage

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawRectangleEmpty draws the outline of r into the context.
func DrawRectangleEmpty(dc *gg.Context, r image.Rectangle, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}

// Tile is one captioned cell of a diagnostic mosaic.
type Tile struct {
	Label string
	Image image.Image
}

const (
	mosaicCaptionHeight = 24
	mosaicPadding       = 6
	mosaicFontSize      = 14
)

// DiagnosticMosaic lays the tiles out row by row in a grid with cols columns. Every tile is
// scaled to tileWidth keeping its aspect ratio, outlined, and captioned with its label above it.
func DiagnosticMosaic(tiles []Tile, cols, tileWidth int) (image.Image, error) {
	if len(tiles) == 0 {
		return nil, errors.New("mosaic needs at least one tile")
	}
	if cols <= 0 || tileWidth <= 0 {
		return nil, errors.Errorf("invalid mosaic layout: %d columns of width %d", cols, tileWidth)
	}

	scaled := make([]*image.NRGBA, len(tiles))
	tileHeight := 0
	for i, tile := range tiles {
		if tile.Image == nil || tile.Image.Bounds().Empty() {
			return nil, errors.Errorf("mosaic tile %q has no image", tile.Label)
		}
		scaled[i] = imaging.Resize(tile.Image, tileWidth, 0, imaging.Box)
		if h := scaled[i].Bounds().Dy(); h > tileHeight {
			tileHeight = h
		}
	}

	rows := (len(tiles) + cols - 1) / cols
	cellW := tileWidth + 2*mosaicPadding
	cellH := tileHeight + mosaicCaptionHeight + 2*mosaicPadding
	dc := gg.NewContext(cols*cellW, rows*cellH)
	dc.SetColor(color.White)
	dc.Clear()

	for i, img := range scaled {
		x0 := (i%cols)*cellW + mosaicPadding
		y0 := (i/cols)*cellH + mosaicPadding
		DrawString(dc, tiles[i].Label, image.Point{x0, y0}, color.Black, mosaicFontSize)
		dc.DrawImage(img, x0, y0+mosaicCaptionHeight)
		bounds := image.Rect(x0, y0+mosaicCaptionHeight, x0+img.Bounds().Dx(), y0+mosaicCaptionHeight+img.Bounds().Dy())
		DrawRectangleEmpty(dc, bounds, color.Gray{128}, 1)
	}
	return dc.Image(), nil
}
