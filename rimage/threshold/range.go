package threshold

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// Range is an interval of accepted sample values. Each bound is independently inclusive or
// exclusive so detectors can keep their own boundary convention.
type Range struct {
	Min            float64 `json:"min" yaml:"min"`
	Max            float64 `json:"max" yaml:"max"`
	LowerInclusive bool    `json:"lower_inclusive" yaml:"lower_inclusive"`
	UpperInclusive bool    `json:"upper_inclusive" yaml:"upper_inclusive"`
}

// Inclusive returns [min, max].
func Inclusive(min, max float64) Range {
	return Range{Min: min, Max: max, LowerInclusive: true, UpperInclusive: true}
}

// LowerExclusive returns (min, max].
func LowerExclusive(min, max float64) Range {
	return Range{Min: min, Max: max, LowerInclusive: false, UpperInclusive: true}
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	if r.LowerInclusive {
		if v < r.Min {
			return false
		}
	} else if v <= r.Min {
		return false
	}
	if r.UpperInclusive {
		return v <= r.Max
	}
	return v < r.Max
}

// Validate checks that both bounds are numbers within [lo, hi] and that Min <= Max.
func (r Range) Validate(lo, hi float64) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return errors.Errorf("range %v has a NaN bound", r)
	}
	if r.Min > r.Max {
		return errors.Errorf("range %v has min greater than max", r)
	}
	if r.Min < lo || r.Max > hi {
		return errors.Errorf("range %v must lie within [%v, %v]", r, lo, hi)
	}
	return nil
}

// String renders the range in interval notation, e.g. (170, 255].
func (r Range) String() string {
	open, closing := "(", ")"
	if r.LowerInclusive {
		open = "["
	}
	if r.UpperInclusive {
		closing = "]"
	}
	return fmt.Sprintf("%s%v, %v%s", open, r.Min, r.Max, closing)
}
