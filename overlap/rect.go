// Package overlap - Batched intersection-over-union metric and the loss built on it.
package overlap

import (
	"fmt"

	"github.com/pkg/errors"
)

// Rect is an axis-aligned box in normalized image coordinates.
//
// (X, Y) is the upper-left corner, W and H extend it to the lower-right
// corner at (X+W, Y+H). Values are expected to lie in [0, 1] but this is
// not enforced.
type Rect struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	W float64 `json:"w" yaml:"w"`
	H float64 `json:"h" yaml:"h"`
}

// LowerRight returns the lower-right corner of the box.
func (r Rect) LowerRight() (x, y float64) {
	return r.X + r.W, r.Y + r.H
}

// Area returns W*H. It is negative when exactly one of W or H is negative.
func (r Rect) Area() float64 {
	return r.W * r.H
}

// Components returns the box as (x, y, w, h).
func (r Rect) Components() [4]float64 {
	return [4]float64{r.X, r.Y, r.W, r.H}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %.4f, %.4f)", r.X, r.Y, r.W, r.H)
}

// Batch is an ordered set of boxes, one per training example. A truth batch
// and a prediction batch are paired by index.
type Batch []Rect

// Len returns the number of boxes in the batch.
func (b Batch) Len() int {
	return len(b)
}

// NewBatch builds a batch from rows of exactly four components.
//
// Arguments:
//   - rows: One (x, y, w, h) row per box.
//
// Returns:
//   - The batch, or ErrShapeMismatch when a row does not have four components.
func NewBatch(rows [][]float64) (Batch, error) {
	batch := make(Batch, len(rows))
	for i, row := range rows {
		if len(row) != 4 {
			return nil, errors.Wrapf(ErrShapeMismatch, "row %d has %d components, want 4", i, len(row))
		}
		batch[i] = Rect{X: row[0], Y: row[1], W: row[2], H: row[3]}
	}

	return batch, nil
}

// BatchFromFlat builds a batch from a flat buffer of 4*N values.
//
// Arguments:
//   - data: The flat buffer.
//   - layout: How the components are ordered in data.
//
// Returns:
//   - The batch, or ErrShapeMismatch when len(data) is not a multiple of four.
//
// @example
// batch, _ := BatchFromFlat([]float64{0, 0, 1, 1, 0.5, 0.5, 0.2, 0.2}, LayoutBoxMajor)
// // batch[1] == Rect{X: 0.5, Y: 0.5, W: 0.2, H: 0.2}
func BatchFromFlat(data []float64, layout Layout) (Batch, error) {
	if len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrShapeMismatch, "flat buffer of %d values is not a multiple of 4", len(data))
	}

	n := len(data) / 4
	batch := make(Batch, n)

	switch layout {
	case LayoutBoxMajor:
		for i := range batch {
			batch[i] = Rect{X: data[4*i], Y: data[4*i+1], W: data[4*i+2], H: data[4*i+3]}
		}
	case LayoutComponentMajor:
		for i := range batch {
			batch[i] = Rect{X: data[i], Y: data[n+i], W: data[2*n+i], H: data[3*n+i]}
		}
	default:
		return nil, errors.Wrapf(ErrInvalidConfig, "unknown layout %q", layout)
	}

	return batch, nil
}

// Flat returns the batch as a flat buffer in the given layout.
func (b Batch) Flat(layout Layout) []float64 {
	n := len(b)
	data := make([]float64, 4*n)

	for i, r := range b {
		if layout == LayoutComponentMajor {
			data[i], data[n+i], data[2*n+i], data[3*n+i] = r.X, r.Y, r.W, r.H
			continue
		}
		data[4*i], data[4*i+1], data[4*i+2], data[4*i+3] = r.X, r.Y, r.W, r.H
	}

	return data
}

// columns splits the batch into its x, y, w and h components.
func (b Batch) columns() (x, y, w, h []float64) {
	x = make([]float64, len(b))
	y = make([]float64, len(b))
	w = make([]float64, len(b))
	h = make([]float64, len(b))

	for i, r := range b {
		x[i], y[i], w[i], h[i] = r.X, r.Y, r.W, r.H
	}

	return x, y, w, h
}
