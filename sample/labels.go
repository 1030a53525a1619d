package sample

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-iou/overlap"
)

// NormalizeBox converts a pixel box inside bounds to normalized coordinates.
//
// Arguments:
//   - box: The annotated box in pixels.
//   - bounds: The image bounds the box was drawn on.
//
// Returns:
//   - The box relative to bounds, with (0, 0) at bounds.Min and (1, 1) at bounds.Max.
//   - An error if bounds is empty.
func NormalizeBox(box, bounds image.Rectangle) (overlap.Rect, error) {
	if bounds.Empty() {
		return overlap.Rect{}, errors.Errorf("image bounds %v are empty", bounds)
	}

	box = box.Canon()
	w, h := float64(bounds.Dx()), float64(bounds.Dy())

	return overlap.Rect{
		X: float64(box.Min.X-bounds.Min.X) / w,
		Y: float64(box.Min.Y-bounds.Min.Y) / h,
		W: float64(box.Dx()) / w,
		H: float64(box.Dy()) / h,
	}, nil
}

// DenormalizeBox maps a normalized box back to pixels inside bounds, rounding
// each edge to the nearest pixel.
func DenormalizeBox(r overlap.Rect, bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	x1, y1 := r.X*w, r.Y*h
	x2, y2 := (r.X+r.W)*w, (r.Y+r.H)*h

	return image.Rect(
		bounds.Min.X+int(math.Round(x1)),
		bounds.Min.Y+int(math.Round(y1)),
		bounds.Min.X+int(math.Round(x2)),
		bounds.Min.Y+int(math.Round(y2)),
	)
}

// Labels normalizes a set of annotations drawn on the same image into a
// ground-truth batch.
func Labels(boxes []image.Rectangle, bounds image.Rectangle) (overlap.Batch, error) {
	batch := make(overlap.Batch, len(boxes))
	for i, box := range boxes {
		r, err := NormalizeBox(box, bounds)
		if err != nil {
			return nil, errors.Wrapf(err, "label %d", i)
		}
		batch[i] = r
	}

	return batch, nil
}
