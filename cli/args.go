package cli

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/lanemask/rimage/calibrate"
)

// boardImage is one calibrate argument: an image path and the board it shows.
type boardImage struct {
	path  string
	board calibrate.Board
}

// parseBoardImage splits "path[=COLSxROWS]", using def when no pattern is given.
func parseBoardImage(arg string, def calibrate.Board) (boardImage, error) {
	idx := strings.LastIndex(arg, "=")
	if idx < 0 {
		return boardImage{path: arg, board: def}, nil
	}
	path, pattern := arg[:idx], arg[idx+1:]
	if path == "" {
		return boardImage{}, errors.Errorf("missing image path in %q", arg)
	}
	board, err := calibrate.ParseBoard(pattern)
	if err != nil {
		return boardImage{}, err
	}
	return boardImage{path: path, board: board}, nil
}

// inOutArgs returns the two positional arguments of undistort and threshold.
func inOutArgs(c *cli.Context) (string, string, error) {
	if c.NArg() != 2 {
		return "", "", errors.Errorf("expected <in> <out>, got %d arguments", c.NArg())
	}
	return c.Args().Get(0), c.Args().Get(1), nil
}
