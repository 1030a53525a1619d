package overlap

import (
	"gorgonia.org/tensor"
)

// Precision is the floating point width every step of an evaluation runs in.
type Precision string

// Precision constants are the supported evaluation precisions.
const (
	PrecisionFP32 Precision = "FP32"
	PrecisionFP64 Precision = "FP64"
)

// dtype maps the precision onto the tensor element type.
func (p Precision) dtype() (tensor.Dtype, bool) {
	switch p {
	case PrecisionFP32:
		return tensor.Float32, true
	case PrecisionFP64:
		return tensor.Float64, true
	default:
		return tensor.Dtype{}, false
	}
}
