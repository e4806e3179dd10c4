package threshold

import (
	"github.com/pkg/errors"
)

var (
	// ErrInputShape is returned when an image does not have the channel count an operation needs.
	ErrInputShape = errors.New("unexpected image shape")
	// ErrSizeMismatch is returned when masks that must line up have different dimensions.
	ErrSizeMismatch = errors.New("mask sizes differ")
)

// NewInputShapeError is used when an operation needs `expected` channels but got `actual`.
func NewInputShapeError(op string, expected, actual int) error {
	return errors.Wrapf(ErrInputShape, "%s needs a %d channel image but got %d channels", op, expected, actual)
}

// NewSizeMismatchError is used when two masks should be the same size but are not.
func NewSizeMismatchError(name string, expected, actual *BinaryMask) error {
	return errors.Wrapf(ErrSizeMismatch, "%s mask is %dx%d, expected %dx%d",
		name, actual.Width(), actual.Height(), expected.Width(), expected.Height())
}
