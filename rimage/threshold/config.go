package threshold

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// GradientConfig configures a Sobel based detector.
type GradientConfig struct {
	KernelSize int     `json:"kernel_size" yaml:"kernel_size"`
	Min        float64 `json:"min" yaml:"min"`
	Max        float64 `json:"max" yaml:"max"`
}

// Range returns the inclusive bounds.
func (gc GradientConfig) Range() Range {
	return Inclusive(gc.Min, gc.Max)
}

// AbsSobelConfig configures the directional gradient detector.
type AbsSobelConfig struct {
	Orientation    string `json:"orientation" yaml:"orientation"`
	GradientConfig `yaml:",inline"`
}

// ColorConfig configures the saturation detector. Bounds default to (min, max].
type ColorConfig struct {
	Min            float64 `json:"min" yaml:"min"`
	Max            float64 `json:"max" yaml:"max"`
	LowerInclusive bool    `json:"lower_inclusive" yaml:"lower_inclusive"`
	UpperInclusive bool    `json:"upper_inclusive" yaml:"upper_inclusive"`
}

// Range returns the bounds with the configured inclusivity.
func (cc ColorConfig) Range() Range {
	return Range{Min: cc.Min, Max: cc.Max, LowerInclusive: cc.LowerInclusive, UpperInclusive: cc.UpperInclusive}
}

// Config holds the settings of the four detectors of the combined threshold.
type Config struct {
	AbsSobel  AbsSobelConfig `json:"abs_sobel" yaml:"abs_sobel"`
	Magnitude GradientConfig `json:"magnitude" yaml:"magnitude"`
	Direction GradientConfig `json:"direction" yaml:"direction"`
	Color     ColorConfig    `json:"color" yaml:"color"`
}

// DefaultConfig returns the presets tuned for highway lane markings.
func DefaultConfig() Config {
	return Config{
		AbsSobel: AbsSobelConfig{
			Orientation:    OrientX.String(),
			GradientConfig: GradientConfig{KernelSize: 3, Min: 50, Max: 255},
		},
		Magnitude: GradientConfig{KernelSize: 3, Min: 50, Max: 255},
		Direction: GradientConfig{KernelSize: 15, Min: 0.7, Max: 1.3},
		Color:     ColorConfig{Min: 170, Max: 255, LowerInclusive: false, UpperInclusive: true},
	}
}

func validateKernel(name string, ksize int) error {
	if ksize < 1 || ksize > 31 || ksize%2 == 0 {
		return errors.Errorf("%s: kernel_size must be odd and in 1..31, got %d", name, ksize)
	}
	return nil
}

// Validate reports every invalid field of the config.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseOrientation(c.AbsSobel.Orientation); err != nil {
		errs = append(errs, errors.Wrap(err, "abs_sobel"))
	}
	errs = append(errs, validateKernel("abs_sobel", c.AbsSobel.KernelSize))
	if err := c.AbsSobel.Range().Validate(0, 255); err != nil {
		errs = append(errs, errors.Wrap(err, "abs_sobel"))
	}
	errs = append(errs, validateKernel("magnitude", c.Magnitude.KernelSize))
	if err := c.Magnitude.Range().Validate(0, 255); err != nil {
		errs = append(errs, errors.Wrap(err, "magnitude"))
	}
	errs = append(errs, validateKernel("direction", c.Direction.KernelSize))
	if err := c.Direction.Range().Validate(0, math.Pi/2); err != nil {
		errs = append(errs, errors.Wrap(err, "direction"))
	}
	if err := c.Color.Range().Validate(0, 255); err != nil {
		errs = append(errs, errors.Wrap(err, "color"))
	}
	return multierr.Combine(errs...)
}

// LoadConfig reads a JSON (.json) or YAML (.yaml, .yml) config. Fields missing from the file
// keep their DefaultConfig values. The result is validated.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "cannot read threshold config")
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, errors.Errorf("threshold config %q must be .json, .yaml or .yml", path)
	}
	if err != nil {
		return cfg, errors.Wrapf(err, "cannot parse threshold config %q", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid threshold config %q", path)
	}
	return cfg, nil
}

// SaveConfig writes cfg as JSON or YAML, chosen by the extension of path.
func SaveConfig(path string, cfg Config) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		return errors.Errorf("threshold config %q must be .json, .yaml or .yml", path)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
