package transform

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// BrownConrady is the forward Brown-Conrady lens model. It takes a point on the ideal,
// normalized image plane and returns where the lens actually images it:
//
//	x_d = x * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x*y + p1*(r² + 2*y²)
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	for _, p := range bc.Parameters() {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return InvalidDistortionError("BrownConrady parameters must be finite")
		}
	}
	return nil
}

// NewBrownConrady takes in a slice of floats that will be passed into the struct in order
// (rk1, rk2, rk3, tp1, tp2). Missing trailing values are 0.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	params := make([]float64, 5)
	copy(params, inp)
	return &BrownConrady{params[0], params[1], params[2], params[3], params[4]}, nil
}

// NewBrownConradyFromOpenCV takes coefficients in the (k1, k2, p1, p2[, k3]) order used by
// calibration files.
func NewBrownConradyFromOpenCV(coeffs []float64) (*BrownConrady, error) {
	switch len(coeffs) {
	case 0:
		return &BrownConrady{}, nil
	case 4:
		return &BrownConrady{coeffs[0], coeffs[1], 0, coeffs[2], coeffs[3]}, nil
	case 5:
		return &BrownConrady{coeffs[0], coeffs[1], coeffs[4], coeffs[2], coeffs[3]}, nil
	default:
		return nil, InvalidDistortionError(fmt.Sprintf("expected 0, 4 or 5 distortion coefficients, got %d", len(coeffs)))
	}
}

// OpenCVCoefficients returns the parameters in (k1, k2, p1, p2, k3) order.
func (bc *BrownConrady) OpenCVCoefficients() []float64 {
	if bc == nil {
		return []float64{0, 0, 0, 0, 0}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Inverse returns the model that maps distorted points back to undistorted ones.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	if bc == nil {
		return nil
	}
	return &InverseBrownConrady{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Transform distorts the normalized point (x, y).
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	radDist := 1 + r2*(bc.RadialK1+r2*(bc.RadialK2+r2*bc.RadialK3))
	xd := x*radDist + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
	yd := y*radDist + 2*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2*y*y)
	return xd, yd
}
