package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lanemask/logging"
	"go.viam.com/lanemask/rimage"
	"go.viam.com/lanemask/rimage/threshold"
	"go.viam.com/lanemask/rimage/transform"
)

// ThresholdAction runs the lane feature pipeline on one image and writes the combined mask as a
// black and white image.
func ThresholdAction(c *cli.Context) error {
	logger := loggerFrom(c)
	in, out, err := inOutArgs(c)
	if err != nil {
		return err
	}

	// the calibration is checked before any image work
	var model *transform.DistortionModel
	if path := c.Path(flagCalibration); path != "" {
		if model, err = transform.LoadDistortionModel(path); err != nil {
			return err
		}
	}
	cfg := threshold.DefaultConfig()
	if path := c.Path(thresholdFlagConfig); path != "" {
		if cfg, err = threshold.LoadConfig(path); err != nil {
			return err
		}
	}
	pipeline, err := threshold.NewPipeline(cfg, logger.Sublogger("threshold"))
	if err != nil {
		return err
	}

	img, err := rimage.ReadImageFromFile(in)
	if err != nil {
		return err
	}
	if model != nil {
		if img, err = model.Undistort(img); err != nil {
			return err
		}
	} else {
		logger.Debug("no calibration given, treating the input as undistorted")
	}

	ctx := c.Context
	if c.Bool(thresholdFlagTrace) {
		ctx = logging.WithTrace(ctx, in)
	}
	res, err := pipeline.Run(ctx, img)
	if err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(out, res.Combined.Picture()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s (%d of %d pixels set)\n",
		out, res.Combined.Count(), res.Combined.Width()*res.Combined.Height())

	if path := c.Path(thresholdFlagDiagnostics); path != "" {
		mosaic, err := res.Mosaic(img, c.Int(thresholdFlagTileWidth))
		if err != nil {
			return err
		}
		if err := rimage.WriteImageToFile(path, mosaic); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
	}
	return nil
}

// PresetsAction writes the default detector presets so they can be edited and passed back with
// threshold --config.
func PresetsAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.Errorf("expected a single output path, got %d arguments", c.NArg())
	}
	out := c.Args().First()
	if err := threshold.SaveConfig(out, threshold.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", out)
	return nil
}
