package overlap

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Layout is the component ordering of a flat box buffer.
type Layout string

const (
	// LayoutBoxMajor stores x, y, w, h for each box in turn (channels last).
	LayoutBoxMajor Layout = "box_major"
	// LayoutComponentMajor stores every x, then every y, then every w, then every h.
	LayoutComponentMajor Layout = "component_major"
)

// DenominatorPolicy decides what happens when the selected branch of a pair
// divides by zero.
type DenominatorPolicy string

const (
	// DenominatorZero scores such pairs as 0, so their loss is LossScale.
	DenominatorZero DenominatorPolicy = "zero"
	// DenominatorError fails the whole call with ErrDegenerateDenominator.
	DenominatorError DenominatorPolicy = "error"
)

// Config holds everything a Metric needs to know up front. It replaces
// process-wide backend settings: two metrics with different configs can
// run side by side.
type Config struct {
	// Precision every step runs in.
	Precision Precision `json:"precision" yaml:"precision"`

	// Layout of flat buffers handed to BatchFromFlat by callers that read the config.
	Layout Layout `json:"layout" yaml:"layout"`

	// DenominatorPolicy for zero denominators.
	DenominatorPolicy DenominatorPolicy `json:"denominator_policy" yaml:"denominator_policy"`

	// LossScale multiplies (1 - score).
	LossScale float64 `json:"loss_scale" yaml:"loss_scale"`

	// ClipMin and ClipMax bound the predicted lower-right corner.
	ClipMin float64 `json:"clip_min" yaml:"clip_min"`
	ClipMax float64 `json:"clip_max" yaml:"clip_max"`

	// RejectNonFinite fails calls whose input holds NaN or Inf.
	RejectNonFinite bool `json:"reject_non_finite" yaml:"reject_non_finite"`
}

// DefaultConfig returns the configuration the loss was tuned with.
//
// Returns:
//   - Config: FP64, box-major, zero policy, scale 100, clip to [0, 1].
//
// @example
// cfg := DefaultConfig()
// cfg.Precision = PrecisionFP32
// metric, err := NewMetric(cfg)
func DefaultConfig() Config {
	return Config{
		Precision:         PrecisionFP64,
		Layout:            LayoutBoxMajor,
		DenominatorPolicy: DenominatorZero,
		LossScale:         100,
		ClipMin:           0,
		ClipMax:           1,
		RejectNonFinite:   true,
	}
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	if _, ok := c.Precision.dtype(); !ok {
		return errors.Wrapf(ErrInvalidConfig, "unsupported precision %q", c.Precision)
	}

	switch c.Layout {
	case LayoutBoxMajor, LayoutComponentMajor:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown layout %q", c.Layout)
	}

	switch c.DenominatorPolicy {
	case DenominatorZero, DenominatorError:
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown denominator policy %q", c.DenominatorPolicy)
	}

	if !(c.LossScale > 0) {
		return errors.Wrapf(ErrInvalidConfig, "loss scale must be positive, got %v", c.LossScale)
	}

	if !(c.ClipMin < c.ClipMax) {
		return errors.Wrapf(ErrInvalidConfig, "clip range [%v, %v] is empty", c.ClipMin, c.ClipMax)
	}

	return nil
}

// Save writes the configuration to a JSON file.
func (c Config) Save(filename string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}

	return nil
}

// LoadConfig reads a JSON configuration. Fields missing from the file keep
// their DefaultConfig values.
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config file")
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}
