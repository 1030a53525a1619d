package overlap

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// vecOps runs elementwise tensor arithmetic in one dtype. The first failing
// operation is kept in err and every later call becomes a no-op, so a chain
// of operations needs a single error check at the end.
type vecOps struct {
	dt  tensor.Dtype
	err error
}

// scalar converts v to the Go type matching the dtype.
func (o *vecOps) scalar(v float64) interface{} {
	if o.dt == tensor.Float32 {
		return float32(v)
	}
	return v
}

// vector copies vals into a dense vector of the configured dtype.
func (o *vecOps) vector(vals []float64) *tensor.Dense {
	if o.dt == tensor.Float32 {
		data := make([]float32, len(vals))
		for i, v := range vals {
			data[i] = float32(v)
		}
		return tensor.New(tensor.WithShape(len(vals)), tensor.WithBacking(data))
	}

	data := make([]float64, len(vals))
	copy(data, vals)
	return tensor.New(tensor.WithShape(len(vals)), tensor.WithBacking(data))
}

func (o *vecOps) apply(op string, fn func() (tensor.Tensor, error)) tensor.Tensor {
	if o.err != nil {
		return nil
	}

	t, err := fn()
	if err != nil {
		o.err = errors.Wrapf(err, "elementwise %s failed", op)
		return nil
	}

	return t
}

func (o *vecOps) add(a, b interface{}) tensor.Tensor {
	return o.apply("add", func() (tensor.Tensor, error) { return tensor.Add(a, b) })
}

func (o *vecOps) sub(a, b interface{}) tensor.Tensor {
	return o.apply("sub", func() (tensor.Tensor, error) { return tensor.Sub(a, b) })
}

func (o *vecOps) mul(a, b interface{}) tensor.Tensor {
	return o.apply("mul", func() (tensor.Tensor, error) { return tensor.Mul(a, b) })
}

func (o *vecOps) div(a, b interface{}) tensor.Tensor {
	return o.apply("div", func() (tensor.Tensor, error) { return tensor.Div(a, b) })
}

func (o *vecOps) abs(a tensor.Tensor) tensor.Tensor {
	return o.apply("abs", func() (tensor.Tensor, error) { return tensor.Abs(a) })
}

// gt, lt and eq return 1 where the comparison holds and 0 elsewhere, in the
// same dtype as the operands.
func (o *vecOps) gt(a, b interface{}) tensor.Tensor {
	return o.apply("gt", func() (tensor.Tensor, error) { return tensor.Gt(a, b, tensor.AsSameType()) })
}

func (o *vecOps) lt(a, b interface{}) tensor.Tensor {
	return o.apply("lt", func() (tensor.Tensor, error) { return tensor.Lt(a, b, tensor.AsSameType()) })
}

func (o *vecOps) eq(a, b interface{}) tensor.Tensor {
	return o.apply("eq", func() (tensor.Tensor, error) { return tensor.ElEq(a, b, tensor.AsSameType()) })
}

// not flips a 0/1 mask.
func (o *vecOps) not(mask interface{}) tensor.Tensor {
	return o.sub(o.scalar(1), mask)
}

// or combines two 0/1 masks as a + b - a*b.
func (o *vecOps) or(a, b interface{}) tensor.Tensor {
	return o.sub(o.add(a, b), o.mul(a, b))
}

// blend selects a where mask is 1 and b where mask is 0. Both a and b must be
// finite: 0*Inf is NaN.
func (o *vecOps) blend(mask, a, b interface{}) tensor.Tensor {
	return o.add(o.mul(mask, a), o.mul(o.not(mask), b))
}

// safeDiv divides num by den and returns 0 wherever den is exactly zero. The
// zero mask is returned too so callers can see where it fired.
func (o *vecOps) safeDiv(num, den tensor.Tensor) (quot, zero tensor.Tensor) {
	zero = o.eq(den, o.scalar(0))
	quot = o.mul(o.div(num, o.add(den, zero)), o.not(zero))
	return quot, zero
}

// dataHolder is satisfied by both tensor.Tensor and gorgonia values.
type dataHolder interface {
	Data() interface{}
}

// float64s widens a tensor's backing data. A nil tensor is an empty batch.
func float64s(t dataHolder) []float64 {
	if t == nil {
		return []float64{}
	}

	switch data := t.Data().(type) {
	case []float64:
		out := make([]float64, len(data))
		copy(out, data)
		return out
	case []float32:
		out := make([]float64, len(data))
		for i, v := range data {
			out[i] = float64(v)
		}
		return out
	case float64:
		return []float64{data}
	case float32:
		return []float64{float64(data)}
	default:
		return nil
	}
}

// checkFinite reports the first NaN or Inf in vals as it would be stored in
// the dtype. A float64 too large for float32 overflows to Inf and is caught.
func checkFinite(dt tensor.Dtype, name string, vals []float64) error {
	for i, v := range vals {
		bad := math.IsNaN(v) || math.IsInf(v, 0)
		if dt == tensor.Float32 {
			f := float32(v)
			bad = math32.IsNaN(f) || math32.IsInf(f, 0)
		}
		if bad {
			return errors.Wrapf(ErrNonFiniteInput, "%s[%d] = %v", name, i, v)
		}
	}

	return nil
}
