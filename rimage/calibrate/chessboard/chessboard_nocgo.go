//go:build no_cgo

// Package chessboard finds the internal corners of a chessboard calibration target using OpenCV.
package chessboard

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/lanemask/rimage"
	"go.viam.com/lanemask/rimage/calibrate"
)

// FindCorners is unavailable without cgo.
func FindCorners(img *rimage.Image, board calibrate.Board) ([]r2.Point, bool, error) {
	return nil, false, errors.New("chessboard detection requires a cgo build with OpenCV")
}
