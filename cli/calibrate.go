package cli

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lanemask/rimage"
	"go.viam.com/lanemask/rimage/calibrate"
	"go.viam.com/lanemask/rimage/calibrate/chessboard"
)

// CalibrateAction finds the chessboard in every input image, calibrates the camera from the views
// where it was found and writes the resulting model.
func CalibrateAction(c *cli.Context) error {
	logger := loggerFrom(c)
	if c.NArg() == 0 {
		return errors.New("no calibration images given")
	}
	def, err := calibrate.ParseBoard(c.String(calibrateFlagPattern))
	if err != nil {
		return err
	}

	var size image.Point
	var views []calibrate.View
	for _, arg := range c.Args().Slice() {
		in, err := parseBoardImage(arg, def)
		if err != nil {
			return err
		}
		img, err := rimage.ReadImageFromFile(in.path)
		if err != nil {
			return err
		}
		// the first image sets the calibrated size; corners found in others are used as they are
		if size == (image.Point{}) {
			size = img.Size()
		} else if img.Size() != size {
			logger.Warnw("image size differs from the calibration size",
				"image", in.path, "size", img.Size().String(), "calibration_size", size.String())
		}

		corners, found, err := chessboard.FindCorners(img, in.board)
		if err != nil {
			return errors.Wrap(err, in.path)
		}
		if !found {
			logger.Warnw("no chessboard found, skipping image", "image", in.path, "board", in.board.String())
			continue
		}
		logger.Debugw("found chessboard", "image", in.path, "board", in.board.String())
		views = append(views, calibrate.View{Name: in.path, Board: in.board, Corners: corners})
	}

	res, err := calibrate.NewCalibrator(logger).Calibrate(c.Context, views, size)
	if err != nil {
		return err
	}
	out := c.Path(calibrateFlagOut)
	if err := res.Model.Save(out); err != nil {
		return err
	}
	if plotPath := c.Path(calibrateFlagPlot); plotPath != "" {
		if err := res.PlotViewErrors(plotPath); err != nil {
			return err
		}
		logger.Infow("wrote reprojection error chart", "path", plotPath)
	}
	fmt.Fprintf(c.App.Writer, "calibrated from %d of %d images, rms reprojection error %.4f px, wrote %s\n",
		len(views), c.NArg(), res.RMSError, out)
	return nil
}
