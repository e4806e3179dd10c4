// Package cli contains the lanemask command line tool: camera calibration, undistortion and lane
// feature thresholding of image files.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/lanemask/logging"
)

const (
	generalFlagDebug   = "debug"
	generalFlagLogFile = "log-file"

	calibrateFlagOut     = "out"
	calibrateFlagPattern = "pattern"
	calibrateFlagPlot    = "plot"

	flagCalibration = "calibration"

	thresholdFlagConfig      = "config"
	thresholdFlagDiagnostics = "diagnostics"
	thresholdFlagTileWidth   = "tile-width"
	thresholdFlagTrace       = "trace"

	loggerMetadataKey  = "logger"
	logFileMetadataKey = "log-file"
)

var app = &cli.App{
	Name:            "lanemask",
	Usage:           "calibrate a camera and extract lane features from its images",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.PathFlag{
			Name:  generalFlagLogFile,
			Usage: "also append logs to `FILE`, rotated once it grows past 10MB",
		},
	},
	Before: func(c *cli.Context) error {
		logger := logging.NewBlankLogger("lanemask")
		logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
		if c.Bool(generalFlagDebug) {
			logger.SetLevel(logging.DEBUG)
		} else {
			logger.SetLevel(logging.INFO)
		}
		if c.App.Metadata == nil {
			c.App.Metadata = map[string]interface{}{}
		}
		if path := c.Path(generalFlagLogFile); path != "" {
			logFile := &lumberjack.Logger{Filename: path, MaxSize: 10, MaxBackups: 3}
			logger.AddAppender(logging.NewWriterAppender(logFile))
			c.App.Metadata[logFileMetadataKey] = logFile
		} else {
			delete(c.App.Metadata, logFileMetadataKey)
		}
		c.App.Metadata[loggerMetadataKey] = logger
		logging.ReplaceGlobal(logger)
		return nil
	},
	After: func(c *cli.Context) error {
		if logFile, ok := c.App.Metadata[logFileMetadataKey].(*lumberjack.Logger); ok {
			return logFile.Close()
		}
		return nil
	},
	Commands: []*cli.Command{
		{
			Name:      "calibrate",
			Usage:     "estimate camera intrinsics and lens distortion from chessboard images",
			ArgsUsage: "<image[=COLSxROWS]>...",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     calibrateFlagOut,
					Required: true,
					Usage:    "write the calibration to `FILE` (JSON)",
				},
				&cli.StringFlag{
					Name:  calibrateFlagPattern,
					Value: "9x6",
					Usage: "internal corners of the chessboard as COLSxROWS, per image overrides use image=COLSxROWS",
				},
				&cli.PathFlag{
					Name:  calibrateFlagPlot,
					Usage: "write a chart of the per image reprojection error to `FILE` (png, svg or pdf)",
				},
			},
			Action: CalibrateAction,
		},
		{
			Name:      "undistort",
			Usage:     "remove lens distortion from an image",
			ArgsUsage: "<in> <out>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagCalibration,
					Required: true,
					Usage:    "calibration `FILE` written by calibrate",
				},
			},
			Action: UndistortAction,
		},
		{
			Name:      "threshold",
			Usage:     "compute the combined lane feature mask of an image",
			ArgsUsage: "<in> <out>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:  flagCalibration,
					Usage: "undistort the input with the calibration `FILE` first",
				},
				&cli.PathFlag{
					Name:  thresholdFlagConfig,
					Usage: "load detector presets from `FILE` (JSON or YAML)",
				},
				&cli.PathFlag{
					Name:  thresholdFlagDiagnostics,
					Usage: "write a grid of every intermediate mask to `FILE`",
				},
				&cli.IntFlag{
					Name:  thresholdFlagTileWidth,
					Value: 320,
					Usage: "width of each diagnostic tile in pixels",
				},
				&cli.BoolFlag{
					Name:  thresholdFlagTrace,
					Usage: "log the pipeline's debug details for this image, tagged with its path, without --debug",
				},
			},
			Action: ThresholdAction,
		},
		{
			Name:      "presets",
			Usage:     "write the default detector presets",
			ArgsUsage: "<out.yaml|out.json>",
			Action:    PresetsAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}

// loggerFrom returns the logger installed by the app's Before hook.
func loggerFrom(c *cli.Context) logging.Logger {
	if logger, ok := c.App.Metadata[loggerMetadataKey].(logging.Logger); ok {
		return logger
	}
	return logging.Global()
}
