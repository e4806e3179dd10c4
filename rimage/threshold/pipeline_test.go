package threshold

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/lanemask/logging"
	"go.viam.com/lanemask/rimage"
)

func TestPipelineMatchesDetectors(t *testing.T) {
	img := colorfulImage(40, 30, 3)
	logger, observed := logging.NewObservedTestLogger(t)

	cfg := DefaultConfig()
	p, err := NewPipeline(cfg, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Config(), test.ShouldResemble, cfg)

	res, err := p.Run(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)

	abs, err := AbsSobelThresh(img, OrientX, 3, cfg.AbsSobel.Range())
	test.That(t, err, test.ShouldBeNil)
	mag, err := MagThresh(img, 3, cfg.Magnitude.Range())
	test.That(t, err, test.ShouldBeNil)
	dir, err := DirThreshold(img, 15, cfg.Direction.Range())
	test.That(t, err, test.ShouldBeNil)
	color, err := HLSThresh(img, cfg.Color.Range())
	test.That(t, err, test.ShouldBeNil)
	combined, err := Combine(abs, mag, dir, color)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, res.Abs.Rows(), test.ShouldResemble, abs.Rows())
	test.That(t, res.Mag.Rows(), test.ShouldResemble, mag.Rows())
	test.That(t, res.Dir.Rows(), test.ShouldResemble, dir.Rows())
	test.That(t, res.Color.Rows(), test.ShouldResemble, color.Rows())
	test.That(t, res.Combined.Rows(), test.ShouldResemble, combined.Rows())

	// random noise is full of strong, saturated edges
	test.That(t, res.Combined.Count(), test.ShouldBeGreaterThan, 0)
	test.That(t, observed.FilterMessage("thresholded image").Len(), test.ShouldEqual, 1)

	res2, err := CombinedThresh(img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res2.Combined.Rows(), test.ShouldResemble, res.Combined.Rows())
}

func TestPipelineYOrientation(t *testing.T) {
	img, err := rimage.NewImageFromSamples(3, 4, 3, []uint8{
		0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0,
		90, 90, 90, 90, 90, 90, 90, 90, 90,
		90, 90, 90, 90, 90, 90, 90, 90, 90,
	})
	test.That(t, err, test.ShouldBeNil)

	cfg := DefaultConfig()
	cfg.AbsSobel.Orientation = "y"
	p, err := NewPipeline(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	res, err := p.Run(context.Background(), img)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Abs.Rows(), test.ShouldResemble, [][]uint8{
		{0, 0, 0},
		{1, 1, 1},
		{1, 1, 1},
		{0, 0, 0},
	})
}

func TestPipelineDegenerateGradient(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	p, err := NewPipeline(DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)

	res, err := p.Run(context.Background(), uniformImage(10, 10, 200))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Combined.Count(), test.ShouldEqual, 0)
	test.That(t, observed.FilterMessageSnippet("no gradient").Len(), test.ShouldEqual, 2)
}

func TestPipelineErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Direction.KernelSize = 0
	_, err := NewPipeline(cfg, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	p, err := NewPipeline(DefaultConfig(), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, err = p.Run(context.Background(), rimage.NewGrayImage(4, 4))
	test.That(t, errors.Is(err, ErrInputShape), test.ShouldBeTrue)

	_, err = p.Run(context.Background(), rimage.NewColorImage(0, 0))
	test.That(t, err, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx, colorfulImage(8, 8, 5))
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestResultMosaic(t *testing.T) {
	img := colorfulImage(20, 10, 9)
	res, err := CombinedThresh(img)
	test.That(t, err, test.ShouldBeNil)
	mosaic, err := res.Mosaic(img, 40)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mosaic.Bounds().Dx(), test.ShouldBeGreaterThan, 3*40)
	test.That(t, mosaic.Bounds().Dy(), test.ShouldBeGreaterThan, 2*20)
}
