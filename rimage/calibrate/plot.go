package calibrate

import (
	"image/color"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotViewErrors writes a bar chart of the per view reprojection error to path. The format follows
// the extension (png, svg, pdf, ...).
func (r *Result) PlotViewErrors(path string) error {
	if len(r.ViewErrors) == 0 {
		return errors.New("no view errors to plot")
	}
	if len(r.ViewNames) != len(r.ViewErrors) {
		return errors.Errorf("have %d view names for %d view errors", len(r.ViewNames), len(r.ViewErrors))
	}

	p := plot.New()
	p.Title.Text = "reprojection error per view"
	p.Y.Label.Text = "rms error (px)"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(plotter.Values(r.ViewErrors), vg.Points(16))
	if err != nil {
		return err
	}
	bars.Color = color.RGBA{R: 70, G: 110, B: 180, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)

	labels := make([]string, len(r.ViewNames))
	for i, name := range r.ViewNames {
		labels[i] = filepath.Base(name)
	}
	p.NominalX(labels...)

	width := vg.Length(len(labels))*vg.Points(24) + 2*vg.Inch
	return p.Save(width, 4*vg.Inch, path)
}
