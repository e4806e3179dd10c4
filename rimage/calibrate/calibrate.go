// Package calibrate estimates a camera's pinhole intrinsics and Brown-Conrady lens distortion from
// several chessboard views.
package calibrate

import (
	"context"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lanemask/logging"
	"go.viam.com/lanemask/rimage/transform"
	"go.viam.com/lanemask/utils"
)

// MinViews is the number of board views needed to solve for the intrinsics.
const MinViews = 3

// maxDamping is the damping at which refinement gives up on finding a lower error.
const maxDamping = 1e16

const (
	intrinsicParams = 9 // fx, fy, cx, cy, k1, k2, p1, p2, k3
	poseParams      = 6
)

// Result is the outcome of a calibration.
type Result struct {
	Model *transform.DistortionModel
	// RMSError is the root mean square reprojection error in pixels over every corner.
	RMSError float64
	// ViewErrors is the RMS reprojection error of each view, in input order.
	ViewErrors []float64
	ViewNames  []string
	// Refined reports whether the nonlinear refinement improved on the closed form estimate.
	Refined bool
}

// Calibrator solves for camera parameters from chessboard views.
type Calibrator struct {
	logger logging.Logger
	// MaxIterations bounds the refinement; 0 skips it.
	MaxIterations int
}

// NewCalibrator returns a calibrator with the default refinement budget.
func NewCalibrator(logger logging.Logger) *Calibrator {
	return &Calibrator{logger: logger, MaxIterations: 100}
}

// Calibrate estimates the camera of a set of views taken at the given image size. Homographies,
// intrinsics, poses and radial distortion are first solved in closed form; the whole parameter set
// is then refined by minimizing the squared reprojection error.
func (c *Calibrator) Calibrate(ctx context.Context, views []View, size image.Point) (*Result, error) {
	if len(views) < MinViews {
		return nil, errors.Errorf("need at least %d board views to calibrate, got %d", MinViews, len(views))
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("invalid image size %v", size)
	}
	for i := range views {
		if err := views[i].Validate(); err != nil {
			return nil, err
		}
	}

	homographies := make([]*transform.Homography, len(views))
	fs := make([]utils.SimpleFunc, len(views))
	for i := range views {
		fs[i] = func(ctx context.Context) error {
			h, err := transform.EstimateHomography(views[i].Board.ObjectPoints(), views[i].Corners)
			if err != nil {
				return errors.Wrapf(err, "view %q", views[i].Name)
			}
			homographies[i] = h
			return nil
		}
	}
	if _, err := utils.RunInParallel(ctx, fs); err != nil {
		return nil, err
	}

	scale := float64(utils.MaxInt(size.X, size.Y))
	fx, fy, cx, cy, err := intrinsicsFromHomographies(homographies, scale)
	if err != nil {
		return nil, err
	}
	cam := &camera{fx: fx, fy: fy, cx: cx, cy: cy, poses: make([]pose, len(views))}
	for i, h := range homographies {
		p, err := poseFromHomography(h, fx, fy, cx, cy)
		if err != nil {
			return nil, errors.Wrapf(err, "view %q", views[i].Name)
		}
		cam.poses[i] = p
	}
	c.logger.Debugw("closed form intrinsics", "fx", fx, "fy", fy, "cx", cx, "cy", cy)

	if k1, k2, err := radialFromResiduals(cam, views); err != nil {
		c.logger.Warnw("leaving radial distortion at zero", "error", err)
	} else {
		cam.lens.RadialK1, cam.lens.RadialK2 = k1, k2
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{ViewNames: make([]string, len(views))}
	for i := range views {
		result.ViewNames[i] = views[i].Name
	}
	initial := cam.squaredError(views, size)
	if c.MaxIterations > 0 {
		refined, err := c.refine(ctx, cam, views, size, scale)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			c.logger.Warnw("refinement failed, keeping closed form estimate", "error", err)
		case refined.squaredError(views, size) < initial:
			cam = refined
			result.Refined = true
		default:
			c.logger.Debug("refinement did not improve the closed form estimate")
		}
	}

	result.Model, err = transform.NewDistortionModel(
		cam.model(size.X, size.Y).PinholeCameraIntrinsics, &cam.lens)
	if err != nil {
		return nil, errors.Wrap(err, "calibration produced an invalid camera")
	}

	viewFns := make([]utils.FloatFunc, len(views))
	for i := range views {
		viewFns[i] = func(ctx context.Context) (float64, error) {
			n := float64(len(views[i].Corners))
			return math.Sqrt(cam.viewSquaredError(i, views[i], size) / n), nil
		}
	}
	if _, result.ViewErrors, err = utils.GetInParallel(ctx, viewFns); err != nil {
		return nil, err
	}
	var total float64
	var corners int
	for i, e := range result.ViewErrors {
		n := len(views[i].Corners)
		total += e * e * float64(n)
		corners += n
		c.logger.Debugw("view reprojection error", "view", views[i].Name, "rms", e)
	}
	result.RMSError = math.Sqrt(total / float64(corners))
	median, err := stats.Median(result.ViewErrors)
	if err != nil {
		return nil, err
	}
	worst, err := stats.Max(result.ViewErrors)
	if err != nil {
		return nil, err
	}
	c.logger.Infow("calibrated camera",
		"views", len(views), "rms", result.RMSError, "median_view_rms", median, "worst_view_rms", worst,
		"refined", result.Refined,
		"fx", cam.fx, "fy", cam.fy, "cx", cam.cx, "cy", cam.cy,
		"distortion", cam.lens.OpenCVCoefficients())
	return result, nil
}

// residuals writes the x and y reprojection error of every corner of every view to dst.
func (cam *camera) residuals(dst []float64, views []View, size image.Point) {
	m := cam.model(size.X, size.Y)
	k := 0
	for i, view := range views {
		for j, p := range project(m, cam.poses[i], view.Board.ObjectPoints()) {
			dst[k] = p.X - view.Corners[j].X
			dst[k+1] = p.Y - view.Corners[j].Y
			k += 2
		}
	}
}

func totalCorners(views []View) int {
	var n int
	for _, view := range views {
		n += len(view.Corners)
	}
	return n
}

func (cam *camera) viewSquaredError(i int, view View, size image.Point) float64 {
	projected := project(cam.model(size.X, size.Y), cam.poses[i], view.Board.ObjectPoints())
	var sum float64
	for j, p := range projected {
		sum += square(p.Sub(view.Corners[j]).Norm())
	}
	return sum
}

func (cam *camera) squaredError(views []View, size image.Point) float64 {
	var sum float64
	for i, view := range views {
		sum += cam.viewSquaredError(i, view, size)
	}
	return sum
}

func square(v float64) float64 {
	return v * v
}

// pack lays the camera out as an optimizer vector, with pixel quantities divided by scale.
func (cam *camera) pack(scale float64) []float64 {
	x := make([]float64, 0, intrinsicParams+poseParams*len(cam.poses))
	x = append(x, cam.fx/scale, cam.fy/scale, cam.cx/scale, cam.cy/scale)
	x = append(x, cam.lens.OpenCVCoefficients()...)
	for _, p := range cam.poses {
		x = append(x, p.rotation.X, p.rotation.Y, p.rotation.Z,
			p.translation.X, p.translation.Y, p.translation.Z)
	}
	return x
}

func unpack(x []float64, scale float64) *camera {
	cam := &camera{
		fx: x[0] * scale, fy: x[1] * scale, cx: x[2] * scale, cy: x[3] * scale,
		lens: transform.BrownConrady{
			RadialK1: x[4], RadialK2: x[5], TangentialP1: x[6], TangentialP2: x[7], RadialK3: x[8],
		},
	}
	for k := intrinsicParams; k+poseParams <= len(x); k += poseParams {
		cam.poses = append(cam.poses, pose{
			rotation:    r3.Vector{X: x[k], Y: x[k+1], Z: x[k+2]},
			translation: r3.Vector{X: x[k+3], Y: x[k+4], Z: x[k+5]},
		})
	}
	return cam
}

// refine minimizes the reprojection residuals over every parameter with Levenberg-Marquardt.
// Each step solves the damped system [J; sqrt(lambda) D] step = [-r; 0] by QR, where J is the
// central difference Jacobian and D holds its column norms, so parameters of different units
// are damped alike.
func (c *Calibrator) refine(ctx context.Context, cam *camera, views []View, size image.Point, scale float64) (*camera, error) {
	residuals := func(dst, x []float64) {
		unpack(x, scale).residuals(dst, views, size)
	}

	x := cam.pack(scale)
	m, n := 2*totalCorners(views), len(x)
	r := make([]float64, m)
	residuals(r, x)
	cost := floats.Dot(r, r)

	jac := mat.NewDense(m, n, nil)
	aug := mat.NewDense(m+n, n, nil)
	rhs := mat.NewVecDense(m+n, nil)
	norms := make([]float64, n)
	trial := make([]float64, n)
	trialR := make([]float64, m)
	lambda := 1e-3

	iterations := 0
	converged := false
	for ; iterations < c.MaxIterations && !converged; iterations++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fd.Jacobian(jac, residuals, x, &fd.JacobianSettings{Formula: fd.Central})
		for j := 0; j < n; j++ {
			norms[j] = math.Max(mat.Norm(jac.ColView(j), 2), 1e-12)
		}

		improved := false
		for ; lambda < maxDamping; lambda *= 10 {
			aug.Zero()
			aug.Slice(0, m, 0, n).(*mat.Dense).Copy(jac)
			for j := 0; j < n; j++ {
				aug.Set(m+j, j, math.Sqrt(lambda)*norms[j])
				rhs.SetVec(m+j, 0)
			}
			for i := 0; i < m; i++ {
				rhs.SetVec(i, -r[i])
			}
			var step mat.VecDense
			if err := step.SolveVec(aug, rhs); err != nil {
				// an ill conditioned system still yields a usable step
				var cond mat.Condition
				if !errors.As(err, &cond) {
					return nil, err
				}
			}
			floats.AddTo(trial, x, step.RawVector().Data)
			residuals(trialR, trial)
			trialCost := floats.Dot(trialR, trialR)
			if trialCost >= cost {
				continue
			}
			converged = cost-trialCost <= 1e-12*cost
			copy(x, trial)
			copy(r, trialR)
			cost = trialCost
			lambda = math.Max(lambda/10, 1e-12)
			improved = true
			break
		}
		if !improved {
			converged = true
		}
	}
	c.logger.Debugw("refinement finished",
		"iterations", iterations, "converged", converged, "squared_error", cost, "damping", lambda)
	return unpack(x, scale), nil
}

// Reproject returns where the corners of a board held at the given pose land in an image taken
// with model.
func Reproject(model *transform.DistortionModel, rotation, translation r3.Vector, board Board) ([]r2.Point, error) {
	m, err := model.CameraModel()
	if err != nil {
		return nil, err
	}
	return project(m, pose{rotation: rotation, translation: translation}, board.ObjectPoints()), nil
}
