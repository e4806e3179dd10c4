//go:build !no_cgo

// Package chessboard finds the internal corners of a chessboard calibration target using OpenCV.
package chessboard

import (
	"image"
	"runtime"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/lanemask/rimage"
	"go.viam.com/lanemask/rimage/calibrate"
)

// Sub-pixel refinement settings: an 11x11 search window, 30 iterations or 0.001 px.
var (
	subPixWindow   = image.Pt(11, 11)
	subPixZeroZone = image.Pt(-1, -1)
	subPixCriteria = gocv.NewTermCriteria(gocv.Count|gocv.EPS, 30, 0.001)
)

// FindCorners locates the internal corners of board in img, refined to sub-pixel accuracy. found
// is false when the full grid could not be located; the error is reserved for bad input.
// Corners are ordered row by row, as calibrate.Board.ObjectPoints.
func FindCorners(img *rimage.Image, board calibrate.Board) (corners []r2.Point, found bool, err error) {
	if err := board.Validate(); err != nil {
		return nil, false, err
	}
	gray := img.Gray()
	samples := gray.Samples()
	// the Mat may reference samples directly
	defer runtime.KeepAlive(samples)
	mat, err := gocv.NewMatFromBytes(gray.Height(), gray.Width(), gocv.MatTypeCV8UC1, samples)
	if err != nil {
		return nil, false, errors.Wrap(err, "cannot convert image for corner detection")
	}
	defer mat.Close()

	points := gocv.NewMat()
	defer points.Close()
	pattern := image.Pt(board.Cols, board.Rows)
	flags := gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage
	if !gocv.FindChessboardCorners(mat, pattern, &points, flags) {
		return nil, false, nil
	}
	gocv.CornerSubPix(mat, &points, subPixWindow, subPixZeroZone, subPixCriteria)

	data, err := points.DataPtrFloat32()
	if err != nil {
		return nil, false, errors.Wrap(err, "cannot read detected corners")
	}
	if len(data) != 2*board.NumCorners() {
		return nil, false, errors.Errorf("expected %d corners, detector returned %d", board.NumCorners(), len(data)/2)
	}
	corners = make([]r2.Point, board.NumCorners())
	for i := range corners {
		corners[i] = r2.Point{X: float64(data[2*i]), Y: float64(data[2*i+1])}
	}
	return corners, true, nil
}
