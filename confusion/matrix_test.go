package confusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix_Append(t *testing.T) {
	var m Matrix

	samples := [][2]int{{0, 0}, {0, 0}, {0, 1}, {1, 0}, {1, 1}, {1, 1}, {1, 1}}
	for _, s := range samples {
		require.NoError(t, m.Append(s[0], s[1]))
	}

	assert.Equal(t, 2, m.TN())
	assert.Equal(t, 1, m.FP())
	assert.Equal(t, 1, m.FN())
	assert.Equal(t, 3, m.TP())
	assert.Equal(t, 7, m.Total())
	assert.InDelta(t, 0.75, m.Precision(), 1e-12)
	assert.InDelta(t, 0.75, m.Recall(), 1e-12)
	assert.InDelta(t, 5.0/7.0, m.Accuracy(), 1e-12)
	assert.InDelta(t, 0.75, m.F1(), 1e-12)
	assert.Equal(t, "TN=2 FP=1 FN=1 TP=3 (precision 0.750, recall 0.750)", m.String())

	m.Reset()
	assert.Equal(t, 0, m.Total())
	assert.Equal(t, 0.0, m.Precision())
	assert.Equal(t, 0.0, m.F1())
}

func TestMatrix_InvalidLabel(t *testing.T) {
	var m Matrix

	for _, s := range [][2]int{{2, 0}, {0, -1}, {1, 3}} {
		assert.ErrorIs(t, m.Append(s[0], s[1]), ErrInvalidLabel)
	}
	assert.Equal(t, 0, m.Total())
}

func TestFromScores(t *testing.T) {
	m := FromScores([]float64{0.9, 0.5, 0.49, -3, 1}, 0.5)

	assert.Equal(t, 3, m.TP())
	assert.Equal(t, 2, m.FN())
	assert.Equal(t, 0, m.FP())
	assert.Equal(t, 0, m.TN())
	assert.InDelta(t, 0.6, m.Recall(), 1e-12)
	assert.Equal(t, 1.0, m.Precision())
}
