package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"go.viam.com/lanemask/rimage"
	"go.viam.com/lanemask/rimage/transform"
)

// UndistortAction applies a calibration to a single image.
func UndistortAction(c *cli.Context) error {
	in, out, err := inOutArgs(c)
	if err != nil {
		return err
	}
	model, err := transform.LoadDistortionModel(c.Path(flagCalibration))
	if err != nil {
		return err
	}
	img, err := rimage.ReadImageFromFile(in)
	if err != nil {
		return err
	}
	undistorted, err := model.Undistort(img)
	if err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(out, undistorted); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s\n", out)
	return nil
}
