package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/lanemask/rimage"
)

// ErrCalibrationUnavailable is returned when undistortion is requested without a usable camera
// calibration.
var ErrCalibrationUnavailable = errors.New("camera calibration is not available")

// NewCalibrationUnavailableError wraps ErrCalibrationUnavailable with the reason.
func NewCalibrationUnavailableError(msg string) error {
	return errors.Wrap(ErrCalibrationUnavailable, msg)
}

// DistortionModel is the calibration file shared by the calibrate and threshold commands: the
// image size the camera was calibrated at, the row-major 3x3 camera matrix and the lens
// distortion coefficients in (k1, k2, p1, p2[, k3]) order.
type DistortionModel struct {
	ImageWidth       int        `json:"image_width"`
	ImageHeight      int        `json:"image_height"`
	CameraMatrix     [9]float64 `json:"camera_matrix"`
	DistortionCoeffs []float64  `json:"distortion_coeffs"`
}

// NewDistortionModel builds a model from pinhole intrinsics and a lens model. A nil lens means
// no distortion.
func NewDistortionModel(intrinsics *PinholeCameraIntrinsics, lens *BrownConrady) (*DistortionModel, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	m := &DistortionModel{
		ImageWidth:       intrinsics.Width,
		ImageHeight:      intrinsics.Height,
		DistortionCoeffs: lens.OpenCVCoefficients(),
	}
	copy(m.CameraMatrix[:], intrinsics.GetCameraMatrix().RawMatrix().Data)
	return m, nil
}

// LoadDistortionModel reads and validates a model written by Save. Any failure is reported as
// ErrCalibrationUnavailable.
func LoadDistortionModel(path string) (*DistortionModel, error) {
	m := &DistortionModel{}
	if err := readJSONFile(path, m); err != nil {
		return nil, errors.Wrap(NewCalibrationUnavailableError(path), err.Error())
	}
	if err := m.CheckValid(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes the model as indented JSON, creating parent directories as needed.
func (m *DistortionModel) Save(path string) error {
	if err := m.CheckValid(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "error encoding calibration")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// CheckValid reports why the model cannot be used for undistortion, wrapping
// ErrCalibrationUnavailable.
func (m *DistortionModel) CheckValid() error {
	if m == nil {
		return NewCalibrationUnavailableError("no calibration loaded")
	}
	for i, v := range m.CameraMatrix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return NewCalibrationUnavailableError(fmt.Sprintf("camera_matrix[%d] is not finite", i))
		}
	}
	if m.CameraMatrix[1] != 0 || m.CameraMatrix[3] != 0 || m.CameraMatrix[6] != 0 ||
		m.CameraMatrix[7] != 0 || m.CameraMatrix[8] != 1 {
		return NewCalibrationUnavailableError("camera_matrix must be [fx 0 cx 0 fy cy 0 0 1]")
	}
	if err := m.Intrinsics().CheckValid(); err != nil {
		return errors.Wrap(NewCalibrationUnavailableError("invalid intrinsics"), err.Error())
	}
	lens, err := NewBrownConradyFromOpenCV(m.DistortionCoeffs)
	if err != nil {
		return errors.Wrap(NewCalibrationUnavailableError("invalid distortion_coeffs"), err.Error())
	}
	if err := lens.CheckValid(); err != nil {
		return errors.Wrap(NewCalibrationUnavailableError("invalid distortion_coeffs"), err.Error())
	}
	return nil
}

// Intrinsics returns the pinhole parameters held in the camera matrix.
func (m *DistortionModel) Intrinsics() *PinholeCameraIntrinsics {
	return &PinholeCameraIntrinsics{
		Width:  m.ImageWidth,
		Height: m.ImageHeight,
		Fx:     m.CameraMatrix[0],
		Fy:     m.CameraMatrix[4],
		Ppx:    m.CameraMatrix[2],
		Ppy:    m.CameraMatrix[5],
	}
}

// Lens returns the forward Brown-Conrady model of the coefficients.
func (m *DistortionModel) Lens() (*BrownConrady, error) {
	if m == nil {
		return nil, NewCalibrationUnavailableError("no calibration loaded")
	}
	return NewBrownConradyFromOpenCV(m.DistortionCoeffs)
}

// CameraModel returns the pinhole camera with the forward lens model attached.
func (m *DistortionModel) CameraModel() (*PinholeCameraModel, error) {
	if err := m.CheckValid(); err != nil {
		return nil, err
	}
	lens, err := m.Lens()
	if err != nil {
		return nil, err
	}
	return &PinholeCameraModel{PinholeCameraIntrinsics: m.Intrinsics(), Distortion: lens}, nil
}

// Undistort removes lens distortion from img. The output has the size of img and keeps the
// calibrated camera matrix, as cv2.undistort(img, K, dist, None, K) does, so images of another
// size than the calibration images are resampled with the same center and focal lengths. Pixels
// whose source falls outside of img are 0.
func (m *DistortionModel) Undistort(img *rimage.Image) (*rimage.Image, error) {
	camera, err := m.CameraModel()
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	intrinsics := *camera.PinholeCameraIntrinsics
	intrinsics.Width, intrinsics.Height = img.Width(), img.Height()
	camera.PinholeCameraIntrinsics = &intrinsics
	return camera.UndistortImage(img)
}

// UndistortPoints maps pixel locations in a distorted image to where they appear after Undistort.
func (m *DistortionModel) UndistortPoints(pts []r2.Point) ([]r2.Point, error) {
	if err := m.CheckValid(); err != nil {
		return nil, err
	}
	lens, err := m.Lens()
	if err != nil {
		return nil, err
	}
	intrinsics := m.Intrinsics()
	normalized := make([]r2.Point, len(pts))
	for i, pt := range pts {
		normalized[i] = intrinsics.PixelToNormalized(pt)
	}
	undistorted := lens.Inverse().TransformPoints(normalized)
	for i, pt := range undistorted {
		undistorted[i] = intrinsics.NormalizedToPixel(pt)
	}
	return undistorted, nil
}
