// Package confusion - Binary confusion matrix for detection hit/miss bookkeeping.
package confusion

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidLabel is returned when a truth or predicted value is not 0 or 1.
var ErrInvalidLabel = errors.New("labels must be 0 or 1")

// Matrix counts binary outcomes, indexed [truth][predicted]:
//
//	            predicted
//	             0    1
//	truth  0 |  TN | FP |
//	       1 |  FN | TP |
type Matrix struct {
	counts [2][2]int
}

// Append records one sample.
func (m *Matrix) Append(truth, predicted int) error {
	if truth < 0 || truth > 1 || predicted < 0 || predicted > 1 {
		return errors.Wrapf(ErrInvalidLabel, "got truth=%d predicted=%d", truth, predicted)
	}

	m.counts[truth][predicted]++
	return nil
}

// Reset clears every count.
func (m *Matrix) Reset() {
	m.counts = [2][2]int{}
}

func (m *Matrix) TN() int { return m.counts[0][0] }
func (m *Matrix) FP() int { return m.counts[0][1] }
func (m *Matrix) FN() int { return m.counts[1][0] }
func (m *Matrix) TP() int { return m.counts[1][1] }

// Total returns the number of recorded samples.
func (m *Matrix) Total() int {
	return m.TN() + m.FP() + m.FN() + m.TP()
}

// Precision is TP / (TP + FP), or 0 with no positive predictions.
func (m *Matrix) Precision() float64 {
	return ratio(m.TP(), m.TP()+m.FP())
}

// Recall is TP / (TP + FN), or 0 with no positive truths.
func (m *Matrix) Recall() float64 {
	return ratio(m.TP(), m.TP()+m.FN())
}

// Accuracy is (TP + TN) / Total, or 0 for an empty matrix.
func (m *Matrix) Accuracy() float64 {
	return ratio(m.TP()+m.TN(), m.Total())
}

// F1 is the harmonic mean of precision and recall.
func (m *Matrix) F1() float64 {
	p, r := m.Precision(), m.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

func (m *Matrix) String() string {
	return fmt.Sprintf("TN=%d FP=%d FN=%d TP=%d (precision %.3f, recall %.3f)",
		m.TN(), m.FP(), m.FN(), m.TP(), m.Precision(), m.Recall())
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// FromScores classifies a scored batch. Every pair has a ground-truth object,
// so each score lands in TP when it reaches threshold and FN otherwise.
//
// Arguments:
//   - scores: Overlap scores, one per pair.
//   - threshold: Minimum score counted as a hit.
//
// Returns:
//   - The filled matrix.
//
// @example
// scores, _ := metric.Score(truth, pred)
// m := FromScores(scores, 0.5)
// fmt.Println(m.Recall())
func FromScores(scores []float64, threshold float64) Matrix {
	var m Matrix
	for _, s := range scores {
		hit := 0
		if s >= threshold {
			hit = 1
		}
		m.counts[1][hit]++
	}

	return m
}
