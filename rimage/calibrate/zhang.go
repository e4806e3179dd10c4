package calibrate

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/lanemask/rimage/transform"
)

// camera is the set of parameters solved for: pinhole intrinsics, the lens model and one board
// pose per view.
type camera struct {
	fx, fy, cx, cy float64
	lens           transform.BrownConrady
	poses          []pose
}

// pose places the board in camera coordinates: p_cam = R p_board + t.
type pose struct {
	rotation    r3.Vector
	translation r3.Vector
}

func (c *camera) model(width, height int) *transform.PinholeCameraModel {
	lens := c.lens
	return &transform.PinholeCameraModel{
		PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{
			Width: width, Height: height, Fx: c.fx, Fy: c.fy, Ppx: c.cx, Ppy: c.cy,
		},
		Distortion: &lens,
	}
}

// project maps board points through a pose and the camera model.
func project(m *transform.PinholeCameraModel, p pose, board []r2.Point) []r2.Point {
	q := rotationVectorToQuat(p.rotation)
	out := make([]r2.Point, len(board))
	for i, pt := range board {
		pc := rotate(q, r3.Vector{X: pt.X, Y: pt.Y}).Add(p.translation)
		out[i] = m.Project(pc)
	}
	return out
}

// vij is the constraint row h_i^T B h_j written against b = [B11, B12, B22, B13, B23, B33].
func vij(h *transform.Homography, i, j int) []float64 {
	hi, hj := h.Col(i), h.Col(j)
	return []float64{
		hi[0] * hj[0],
		hi[0]*hj[1] + hi[1]*hj[0],
		hi[1] * hj[1],
		hi[2]*hj[0] + hi[0]*hj[2],
		hi[2]*hj[1] + hi[1]*hj[2],
		hi[2] * hj[2],
	}
}

// intrinsicsFromHomographies solves for zero-skew pinhole intrinsics from three or more board
// homographies (Zhang, "A Flexible New Technique for Camera Calibration", 2000). Pixel
// coordinates are scaled by 1/scale while solving to keep the system conditioned.
func intrinsicsFromHomographies(hs []*transform.Homography, scale float64) (fx, fy, cx, cy float64, err error) {
	norm := mat.NewDense(3, 3, []float64{1 / scale, 0, 0, 0, 1 / scale, 0, 0, 0, 1})
	v := mat.NewDense(2*len(hs)+1, 6, nil)
	for k, h := range hs {
		var hn mat.Dense
		hn.Mul(norm, mat.NewDense(3, 3, []float64{
			h[0][0], h[0][1], h[0][2],
			h[1][0], h[1][1], h[1][2],
			h[2][0], h[2][1], h[2][2],
		}))
		scaled, err := transform.NewHomography(hn.RawMatrix().Data)
		if err != nil {
			return 0, 0, 0, 0, err
		}
		v12 := vij(scaled, 0, 1)
		v11 := vij(scaled, 0, 0)
		v22 := vij(scaled, 1, 1)
		diff := make([]float64, 6)
		for i := range diff {
			diff[i] = v11[i] - v22[i]
		}
		v.SetRow(2*k, v12)
		v.SetRow(2*k+1, diff)
	}
	// zero skew: B12 = 0
	v.SetRow(2*len(hs), []float64{0, 1, 0, 0, 0, 0})

	b, ok := transform.NullVector(v)
	if !ok {
		return 0, 0, 0, 0, errors.New("intrinsics SVD did not converge")
	}
	b11, b12, b22, b13, b23, b33 := b[0], b[1], b[2], b[3], b[4], b[5]

	den := b11*b22 - b12*b12
	if den == 0 || b11 == 0 {
		return 0, 0, 0, 0, errors.New("degenerate views, cannot solve intrinsics")
	}
	v0 := (b12*b13 - b11*b23) / den
	lambda := b33 - (b13*b13+v0*(b12*b13-b11*b23))/b11
	alpha2 := lambda / b11
	beta2 := lambda * b11 / den
	if alpha2 <= 0 || beta2 <= 0 || math.IsNaN(alpha2) || math.IsNaN(beta2) {
		return 0, 0, 0, 0, errors.New("degenerate views, cannot solve intrinsics")
	}
	u0 := -b13 * alpha2 / lambda
	return math.Sqrt(alpha2) * scale, math.Sqrt(beta2) * scale, u0 * scale, v0 * scale, nil
}

// poseFromHomography recovers the board pose from its homography and the intrinsics, projecting
// the rotation onto the closest orthonormal matrix.
func poseFromHomography(h *transform.Homography, fx, fy, cx, cy float64) (pose, error) {
	kinv := func(c [3]float64) r3.Vector {
		return r3.Vector{X: (c[0] - cx*c[2]) / fx, Y: (c[1] - cy*c[2]) / fy, Z: c[2]}
	}
	h1, h2, h3 := kinv(h.Col(0)), kinv(h.Col(1)), kinv(h.Col(2))
	n := h1.Norm()
	if n == 0 {
		return pose{}, errors.New("degenerate homography")
	}
	lambda := 1 / n
	t := h3.Mul(lambda)
	if t.Z < 0 {
		lambda = -lambda
		t = t.Mul(-1)
	}
	r1, r2 := h1.Mul(lambda), h2.Mul(lambda)
	r3v := r1.Cross(r2)

	q := mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3v.X,
		r1.Y, r2.Y, r3v.Y,
		r1.Z, r2.Z, r3v.Z,
	})
	var svd mat.SVD
	if !svd.Factorize(q, mat.SVDFull) {
		return pose{}, errors.New("rotation SVD did not converge")
	}
	var u, v, rot mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	rot.Mul(&u, v.T())
	if mat.Det(&rot) < 0 {
		return pose{}, errors.New("homography gives a reflected board")
	}
	var m [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i][j] = rot.At(i, j)
		}
	}
	return pose{rotation: quatToRotationVector(matrixToQuat(m)), translation: t}, nil
}

// radialFromResiduals estimates k1 and k2 by linear least squares on the difference between the
// observed corners and their distortion-free projections.
func radialFromResiduals(c *camera, views []View) (k1, k2 float64, err error) {
	var rows [][2]float64
	var rhs []float64
	ideal := *c
	ideal.lens = transform.BrownConrady{}
	m := ideal.model(0, 0)
	for i, view := range views {
		projected := project(m, c.poses[i], view.Board.ObjectPoints())
		for j, p := range projected {
			x := (p.X - c.cx) / c.fx
			y := (p.Y - c.cy) / c.fy
			r2 := x*x + y*y
			du, dv := p.X-c.cx, p.Y-c.cy
			rows = append(rows, [2]float64{du * r2, du * r2 * r2}, [2]float64{dv * r2, dv * r2 * r2})
			rhs = append(rhs, view.Corners[j].X-p.X, view.Corners[j].Y-p.Y)
		}
	}
	a := mat.NewDense(len(rows), 2, nil)
	for i, r := range rows {
		a.SetRow(i, r[:])
	}
	var k mat.VecDense
	if err := k.SolveVec(a, mat.NewVecDense(len(rhs), rhs)); err != nil {
		return 0, 0, errors.Wrap(err, "cannot solve radial distortion")
	}
	return k.AtVec(0), k.AtVec(1), nil
}
