package overlap

import (
	"sort"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Gradient returns, for every pair, the derivative of Loss[i] with respect to
// the predicted box's (X, Y, W, H), packed into a Rect.
//
// The loss is rebuilt as a gorgonia expression over the four predicted
// component vectors and differentiated in reverse mode. The clip, max/min and
// apart selections are taken from the forward pass and enter the graph as
// constants: each is piecewise constant in the prediction, so its derivative
// is zero away from the switching point. At the switching point the loss is
// discontinuous and the derivative reported is the one of the branch that was
// selected.
//
// Arguments:
//   - truth: Ground-truth boxes.
//   - pred: Predicted boxes, index-aligned with truth.
//
// Returns:
//   - One gradient per pair.
//   - The same errors as Score.
func (m *Metric) Gradient(truth, pred Batch) ([]Rect, error) {
	pass, err := m.forward(truth, pred)
	if err != nil {
		return nil, err
	}

	return m.backward(pass)
}

// graphBuilder accumulates the first gorgonia error, like vecOps does for tensors.
type graphBuilder struct {
	g   *G.ExprGraph
	dt  tensor.Dtype
	n   int
	err error
}

func (b *graphBuilder) node(op string, fn func() (*G.Node, error)) *G.Node {
	if b.err != nil {
		return nil
	}

	n, err := fn()
	if err != nil {
		b.err = errors.Wrapf(err, "building %s", op)
		return nil
	}

	return n
}

// input adds a named vector holding t.
func (b *graphBuilder) input(name string, t tensor.Tensor) *G.Node {
	return G.NewVector(b.g, b.dt, G.WithShape(b.n), G.WithName(name), G.WithValue(t))
}

func (b *graphBuilder) add(x, y *G.Node) *G.Node {
	return b.node("add", func() (*G.Node, error) { return G.Add(x, y) })
}

func (b *graphBuilder) sub(x, y *G.Node) *G.Node {
	return b.node("sub", func() (*G.Node, error) { return G.Sub(x, y) })
}

func (b *graphBuilder) mul(x, y *G.Node) *G.Node {
	return b.node("mul", func() (*G.Node, error) { return G.HadamardProd(x, y) })
}

func (b *graphBuilder) div(x, y *G.Node) *G.Node {
	return b.node("div", func() (*G.Node, error) { return G.HadamardDiv(x, y) })
}

func (b *graphBuilder) abs(x *G.Node) *G.Node {
	return b.node("abs", func() (*G.Node, error) { return G.Abs(x) })
}

func (b *graphBuilder) neg(x *G.Node) *G.Node {
	return b.node("neg", func() (*G.Node, error) { return G.Neg(x) })
}

func (b *graphBuilder) sum(x *G.Node) *G.Node {
	return b.node("sum", func() (*G.Node, error) { return G.Sum(x) })
}

// backward differentiates the loss of a forward pass.
func (m *Metric) backward(p *pass) ([]Rect, error) {
	if p.n == 0 {
		return []Rect{}, nil
	}

	// Every constant the graph needs is derived from the forward masks with
	// plain tensor arithmetic first.
	o := &vecOps{dt: m.dtype}
	lo, hi := o.scalar(m.config.ClipMin), o.scalar(m.config.ClipMax)
	tlrx := o.add(p.tx, p.tw)
	tlry := o.add(p.ty, p.th)
	lrxClip := o.add(o.mul(p.lrxLow, lo), o.mul(p.lrxHigh, hi))
	lryClip := o.add(o.mul(p.lryLow, lo), o.mul(p.lryHigh, hi))
	areaTrue := o.mul(p.tw, p.th)
	consts := map[string]tensor.Tensor{
		"ulx_truth":   o.mul(p.ulxTruth, p.tx),
		"ulx_pred":    o.not(p.ulxTruth),
		"uly_truth":   o.mul(p.ulyTruth, p.ty),
		"uly_pred":    o.not(p.ulyTruth),
		"lrx_truth":   o.mul(p.lrxTruth, tlrx),
		"lrx_pred":    o.not(p.lrxTruth),
		"lry_truth":   o.mul(p.lryTruth, tlry),
		"lry_pred":    o.not(p.lryTruth),
		"lrx_in":      p.lrxIn,
		"lry_in":      p.lryIn,
		"lrx_clip":    lrxClip,
		"lry_clip":    lryClip,
		"area_truth":  areaTrue,
		"zero_sum":    p.zeroSum,
		"keep_sum":    o.not(p.zeroSum),
		"zero_union":  p.zeroUnion,
		"keep_union":  o.not(p.zeroUnion),
		"apart":       p.apart,
		"overlapping": o.not(p.apart),
		"loss_scale":  o.vector(fill(p.n, m.config.LossScale)),
	}
	if o.err != nil {
		return nil, o.err
	}

	b := &graphBuilder{g: G.NewGraph(), dt: m.dtype, n: p.n}
	names := make([]string, 0, len(consts))
	for name := range consts {
		names = append(names, name)
	}
	sort.Strings(names)

	c := make(map[string]*G.Node, len(consts))
	for _, name := range names {
		c[name] = b.input(name, consts[name])
	}

	px := b.input("pred_x", p.px)
	py := b.input("pred_y", p.py)
	pw := b.input("pred_w", p.pw)
	ph := b.input("pred_h", p.ph)

	// Clipped predicted lower-right corner.
	plrx := b.add(b.mul(b.add(px, pw), c["lrx_in"]), c["lrx_clip"])
	plry := b.add(b.mul(b.add(py, ph), c["lry_in"]), c["lry_clip"])

	// Intersection corners with the forward max/min choices frozen.
	xA := b.add(c["ulx_truth"], b.mul(c["ulx_pred"], px))
	yA := b.add(c["uly_truth"], b.mul(c["uly_pred"], py))
	xB := b.add(c["lrx_truth"], b.mul(c["lrx_pred"], plrx))
	yB := b.add(c["lry_truth"], b.mul(c["lry_pred"], plry))
	inter := b.mul(b.sub(xB, xA), b.sub(yB, yA))

	sum := b.add(c["area_truth"], b.mul(pw, ph))
	union := b.sub(sum, inter)

	apartScore := b.mul(b.div(b.neg(b.abs(inter)), b.add(sum, c["zero_sum"])), c["keep_sum"])
	overlapScore := b.mul(b.div(inter, b.add(union, c["zero_union"])), c["keep_union"])
	score := b.add(b.mul(c["apart"], apartScore), b.mul(c["overlapping"], overlapScore))

	// Pairs are independent, so the gradient of the summed loss holds each
	// pair's own derivative at its index. The constant term of
	// (1 - score) * scale has no derivative and is left out.
	loss := b.mul(c["loss_scale"], b.neg(score))
	cost := b.sum(loss)
	if b.err != nil {
		return nil, b.err
	}

	wrt := G.Nodes{px, py, pw, ph}
	if _, err := G.Grad(cost, wrt...); err != nil {
		return nil, errors.Wrap(err, "failed to differentiate loss")
	}

	vm := G.NewTapeMachine(b.g, G.BindDualValues(wrt...))
	defer vm.Close()

	if err := vm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "failed to run gradient graph")
	}

	cols := make([][]float64, len(wrt))
	for i, node := range wrt {
		grad, err := node.Grad()
		if err != nil {
			return nil, errors.Wrapf(err, "no gradient for %s", node.Name())
		}
		cols[i] = float64s(grad)
		if len(cols[i]) != p.n {
			return nil, errors.Errorf("gradient for %s has %d values, want %d", node.Name(), len(cols[i]), p.n)
		}
	}

	grads := make([]Rect, p.n)
	for i := range grads {
		grads[i] = Rect{X: cols[0][i], Y: cols[1][i], W: cols[2][i], H: cols[3][i]}
	}

	return grads, nil
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
