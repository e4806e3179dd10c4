package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

const (
	inverseMaxIterations = 20
	inverseTolerance     = 1e-10
)

// InverseBrownConrady applies the inverse of the Brown-Conrady distortion model.
// Given distorted points, it computes the corresponding undistorted points using
// an iterative Newton-Raphson method.
type InverseBrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return ibc.forward().CheckValid()
}

// NewInverseBrownConrady takes in a slice of floats that will be passed into the struct in order.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	bc, err := NewBrownConrady(inp)
	if err != nil {
		return nil, errors.Wrap(err, "cannot build inverse model")
	}
	return bc.Inverse(), nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return []float64{ibc.RadialK1, ibc.RadialK2, ibc.RadialK3, ibc.TangentialP1, ibc.TangentialP2}
}

func (ibc *InverseBrownConrady) forward() *BrownConrady {
	return &BrownConrady{ibc.RadialK1, ibc.RadialK2, ibc.RadialK3, ibc.TangentialP1, ibc.TangentialP2}
}

// Transform solves the forward model for the undistorted point that lands on (xd, yd),
// starting from the distorted point itself. Iteration stops once the residual falls under
// 1e-10 or the Jacobian becomes singular.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	bc := ibc.forward()
	xu, yu := xd, yd
	for i := 0; i < inverseMaxIterations; i++ {
		xEst, yEst := bc.Transform(xu, yu)
		errX, errY := xEst-xd, yEst-yd
		if math.Hypot(errX, errY) < inverseTolerance {
			break
		}

		j := bc.jacobian(xu, yu)
		det := j[0][0]*j[1][1] - j[0][1]*j[1][0]
		if det == 0 {
			break
		}
		xu -= (j[1][1]*errX - j[0][1]*errY) / det
		yu -= (-j[1][0]*errX + j[0][0]*errY) / det
	}
	return xu, yu
}

// TransformPoints undistorts normalized points.
func (ibc *InverseBrownConrady) TransformPoints(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, pt := range pts {
		x, y := ibc.Transform(pt.X, pt.Y)
		out[i] = r2.Point{X: x, Y: y}
	}
	return out
}

// jacobian is [[dxd/dx, dxd/dy], [dyd/dx, dyd/dy]] of the forward model at (x, y).
func (bc *BrownConrady) jacobian(x, y float64) [2][2]float64 {
	r2 := x*x + y*y
	r4 := r2 * r2
	radDist := 1 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r4*r2
	dRad := 2 * (bc.RadialK1 + 2*bc.RadialK2*r2 + 3*bc.RadialK3*r4)
	p1, p2 := bc.TangentialP1, bc.TangentialP2
	return [2][2]float64{
		{radDist + x*x*dRad + 2*p1*y + 6*p2*x, x*y*dRad + 2*p1*x + 2*p2*y},
		{x*y*dRad + 2*p2*y + 2*p1*x, radDist + y*y*dRad + 2*p2*x + 6*p1*y},
	}
}
