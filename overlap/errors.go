package overlap

import "github.com/pkg/errors"

// Errors returned by the metric. Call sites wrap them with context, so
// compare with errors.Is.
var (
	// ErrShapeMismatch is returned when the truth and prediction batches differ
	// in length or a box does not have exactly four components.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrDegenerateDenominator is returned under DenominatorError when the
	// selected branch divides by zero.
	ErrDegenerateDenominator = errors.New("degenerate denominator")
	// ErrNonFiniteInput is returned when a coordinate is NaN or infinite and
	// the metric is configured to reject such input.
	ErrNonFiniteInput = errors.New("non-finite input")
	// ErrInvalidConfig is returned for configuration values the metric cannot use.
	ErrInvalidConfig = errors.New("invalid config")
)
