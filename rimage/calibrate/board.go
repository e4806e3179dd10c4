package calibrate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Board describes a chessboard target by the number of internal corners along each axis.
type Board struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// ParseBoard parses a "COLSxROWS" pattern such as "9x6".
func ParseBoard(s string) (Board, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Board{}, errors.Errorf("board pattern %q is not of the form COLSxROWS", s)
	}
	cols, err := strconv.Atoi(parts[0])
	if err != nil {
		return Board{}, errors.Wrapf(err, "bad column count in %q", s)
	}
	rows, err := strconv.Atoi(parts[1])
	if err != nil {
		return Board{}, errors.Wrapf(err, "bad row count in %q", s)
	}
	b := Board{Cols: cols, Rows: rows}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Validate requires at least a 2x2 grid of corners.
func (b Board) Validate() error {
	if b.Cols < 2 || b.Rows < 2 {
		return errors.Errorf("board needs at least 2x2 internal corners, got %s", b)
	}
	return nil
}

func (b Board) String() string {
	return fmt.Sprintf("%dx%d", b.Cols, b.Rows)
}

// NumCorners is the number of internal corners.
func (b Board) NumCorners() int {
	return b.Cols * b.Rows
}

// ObjectPoints returns the corner positions on the board plane in square units, x varying fastest.
func (b Board) ObjectPoints() []r2.Point {
	pts := make([]r2.Point, 0, b.NumCorners())
	for y := 0; y < b.Rows; y++ {
		for x := 0; x < b.Cols; x++ {
			pts = append(pts, r2.Point{X: float64(x), Y: float64(y)})
		}
	}
	return pts
}

// View is one image of the board: its detected corners, in ObjectPoints order.
type View struct {
	Name    string
	Board   Board
	Corners []r2.Point
}

// Validate checks that the view holds one corner per board corner.
func (v *View) Validate() error {
	if err := v.Board.Validate(); err != nil {
		return errors.Wrapf(err, "view %q", v.Name)
	}
	if len(v.Corners) != v.Board.NumCorners() {
		return errors.Errorf("view %q has %d corners, board %s needs %d",
			v.Name, len(v.Corners), v.Board, v.Board.NumCorners())
	}
	return nil
}
