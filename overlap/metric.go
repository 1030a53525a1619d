package overlap

import (
	"log"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Metric scores predicted boxes against ground truth and turns the score into
// a loss. A Metric only holds its configuration and is safe for concurrent use.
type Metric struct {
	config Config
	dtype  tensor.Dtype
	logger *log.Logger
}

// Option customises a Metric.
type Option func(*Metric)

// WithLogger logs a one-line summary of every evaluated batch.
func WithLogger(logger *log.Logger) Option {
	return func(m *Metric) {
		m.logger = logger
	}
}

// NewMetric validates the configuration and builds a Metric.
//
// Arguments:
//   - config: The metric configuration, usually derived from DefaultConfig.
//   - opts: Optional settings such as WithLogger.
//
// Returns:
//   - The metric, or an error wrapping ErrInvalidConfig.
func NewMetric(config Config, opts ...Option) (*Metric, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	dt, _ := config.Precision.dtype()
	m := &Metric{config: config, dtype: dt}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Config returns the configuration the metric was built with.
func (m *Metric) Config() Config {
	return m.config
}

// BatchSize returns the number of pairs in a batch. It only exists so a
// training loop can log how many pairs a loss value covers.
func (m *Metric) BatchSize(truth Batch) int {
	return truth.Len()
}

// Score computes the overlap score of every (truth[i], pred[i]) pair.
//
// Overlapping pairs get the usual intersection over union. Pairs that do not
// overlap get -|intersection| / (areaTrue + areaPred), which is non-positive
// and keeps shrinking as the boxes drift apart, so a loss built on it still
// points the prediction toward the truth. The predicted lower-right corner is
// clipped to [ClipMin, ClipMax] first.
//
// Every step runs over the whole batch at once; the choice between the two
// formulas is a 0/1 mask blend rather than a per-pair branch.
//
// Arguments:
//   - truth: Ground-truth boxes.
//   - pred: Predicted boxes, index-aligned with truth.
//
// Returns:
//   - One score per pair.
//   - ErrShapeMismatch, ErrNonFiniteInput or ErrDegenerateDenominator (wrapped).
//
// @example
// metric, _ := NewMetric(DefaultConfig())
// scores, _ := metric.Score(Batch{{X: 0.1, Y: 0.1, W: 0.4, H: 0.4}}, Batch{{X: 0.3, Y: 0.3, W: 0.4, H: 0.4}})
// // scores[0] ≈ 0.1429 (0.04 / 0.28)
func (m *Metric) Score(truth, pred Batch) ([]float64, error) {
	pass, err := m.forward(truth, pred)
	if err != nil {
		return nil, err
	}

	return float64s(pass.score), nil
}

// Loss computes (1 - score) * LossScale for every pair. No reduction is
// applied; averaging is up to the caller.
func (m *Metric) Loss(truth, pred Batch) ([]float64, error) {
	pass, err := m.forward(truth, pred)
	if err != nil {
		return nil, err
	}

	return float64s(pass.loss), nil
}

// Result bundles everything one evaluation produces.
type Result struct {
	// Score per pair.
	Score []float64 `json:"score"`
	// Loss per pair.
	Loss []float64 `json:"loss"`
	// Gradient of Loss[i] with respect to pred[i].
	Gradient []Rect `json:"gradient"`
	// Apart is true for pairs scored with the non-overlap formula.
	Apart []bool `json:"apart"`
}

// Evaluate computes score, loss and gradient in one call.
func (m *Metric) Evaluate(truth, pred Batch) (*Result, error) {
	pass, err := m.forward(truth, pred)
	if err != nil {
		return nil, err
	}

	apart := float64s(pass.apart)
	result := &Result{
		Score: float64s(pass.score),
		Loss:  float64s(pass.loss),
		Apart: make([]bool, len(apart)),
	}
	for i, a := range apart {
		result.Apart[i] = a != 0
	}

	if result.Gradient, err = m.backward(pass); err != nil {
		return nil, err
	}

	return result, nil
}

// pass is the outcome of a forward evaluation. Besides the outputs it keeps
// the inputs and every selection mask, because the gradient graph replays the
// same arithmetic with the masks held constant.
type pass struct {
	n int

	// Inputs.
	tx, ty, tw, th tensor.Tensor
	px, py, pw, ph tensor.Tensor

	// Clip masks for the predicted lower-right corner: below ClipMin, above
	// ClipMax, and inside the range.
	lrxLow, lrxHigh, lrxIn tensor.Tensor
	lryLow, lryHigh, lryIn tensor.Tensor

	// 1 where the truth corner wins the max (upper-left) or min (lower-right).
	ulxTruth, ulyTruth tensor.Tensor
	lrxTruth, lryTruth tensor.Tensor

	// 1 for pairs that do not intersect.
	apart tensor.Tensor

	// 1 where the denominator of each branch is exactly zero.
	zeroSum, zeroUnion tensor.Tensor

	score, loss tensor.Tensor
}

// forward validates the input and runs the batched score and loss.
func (m *Metric) forward(truth, pred Batch) (*pass, error) {
	if truth.Len() != pred.Len() {
		return nil, errors.Wrapf(ErrShapeMismatch, "truth has %d boxes, prediction has %d", truth.Len(), pred.Len())
	}

	tx, ty, tw, th := truth.columns()
	px, py, pw, ph := pred.columns()

	if m.config.RejectNonFinite {
		for _, c := range []struct {
			name string
			vals []float64
		}{
			{"truth.x", tx}, {"truth.y", ty}, {"truth.w", tw}, {"truth.h", th},
			{"pred.x", px}, {"pred.y", py}, {"pred.w", pw}, {"pred.h", ph},
		} {
			if err := checkFinite(m.dtype, c.name, c.vals); err != nil {
				return nil, err
			}
		}
	}

	if truth.Len() == 0 {
		return &pass{}, nil
	}

	o := &vecOps{dt: m.dtype}
	p := &pass{
		n:  truth.Len(),
		tx: o.vector(tx), ty: o.vector(ty), tw: o.vector(tw), th: o.vector(th),
		px: o.vector(px), py: o.vector(py), pw: o.vector(pw), ph: o.vector(ph),
	}

	lo, hi := o.scalar(m.config.ClipMin), o.scalar(m.config.ClipMax)

	// Corners. Only the predicted lower-right is clipped.
	tlrx := o.add(p.tx, p.tw)
	tlry := o.add(p.ty, p.th)
	plrx := o.add(p.px, p.pw)
	plry := o.add(p.py, p.ph)

	p.lrxLow, p.lrxHigh = o.lt(plrx, lo), o.gt(plrx, hi)
	p.lrxIn = o.sub(o.not(p.lrxLow), p.lrxHigh)
	plrx = o.add(o.mul(plrx, p.lrxIn), o.add(o.mul(p.lrxLow, lo), o.mul(p.lrxHigh, hi)))

	p.lryLow, p.lryHigh = o.lt(plry, lo), o.gt(plry, hi)
	p.lryIn = o.sub(o.not(p.lryLow), p.lryHigh)
	plry = o.add(o.mul(plry, p.lryIn), o.add(o.mul(p.lryLow, lo), o.mul(p.lryHigh, hi)))

	// A pair is apart when either axis has one box starting strictly past
	// the end of the other.
	xApart := o.or(o.gt(p.tx, plrx), o.gt(p.px, tlrx))
	yApart := o.or(o.gt(p.ty, plry), o.gt(p.py, tlry))
	p.apart = o.or(xApart, yApart)

	// Intersection corners. For apart pairs this box is inverted and its
	// area is only used through its magnitude.
	p.ulxTruth, p.ulyTruth = o.gt(p.tx, p.px), o.gt(p.ty, p.py)
	p.lrxTruth, p.lryTruth = o.lt(tlrx, plrx), o.lt(tlry, plry)
	xA := o.blend(p.ulxTruth, p.tx, p.px)
	yA := o.blend(p.ulyTruth, p.ty, p.py)
	xB := o.blend(p.lrxTruth, tlrx, plrx)
	yB := o.blend(p.lryTruth, tlry, plry)
	inter := o.mul(o.sub(xB, xA), o.sub(yB, yA))

	areaTrue := o.mul(p.tw, p.th)
	areaPred := o.mul(p.pw, p.ph)
	sum := o.add(areaTrue, areaPred)
	union := o.sub(sum, inter)

	// Both branches are guarded before the blend so an unselected division
	// by zero cannot turn into NaN.
	apartScore, zeroSum := o.safeDiv(o.sub(o.scalar(0), o.abs(inter)), sum)
	overlapScore, zeroUnion := o.safeDiv(inter, union)
	p.zeroSum, p.zeroUnion = zeroSum, zeroUnion

	p.score = o.blend(p.apart, apartScore, overlapScore)
	p.loss = o.mul(o.sub(o.scalar(1), p.score), o.scalar(m.config.LossScale))

	degenerate := o.blend(p.apart, zeroSum, zeroUnion)
	if o.err != nil {
		return nil, o.err
	}

	flags := float64s(degenerate)
	if m.config.DenominatorPolicy == DenominatorError {
		for i, d := range flags {
			if d != 0 {
				return nil, errors.Wrapf(ErrDegenerateDenominator, "pair %d: truth %v, prediction %v", i, truth[i], pred[i])
			}
		}
	}

	if m.logger != nil {
		m.logger.Printf("overlap: scored %d pairs at %s (%d apart, %d degenerate)",
			p.n, m.config.Precision, count(float64s(p.apart)), count(flags))
	}

	return p, nil
}

func count(mask []float64) int {
	n := 0
	for _, v := range mask {
		if v != 0 {
			n++
		}
	}
	return n
}
