package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-iou/overlap"
)

func TestLoadBatches(t *testing.T) {
	dir := t.TempDir()
	want := overlap.Batch{{X: 0.1, Y: 0.1, W: 0.4, H: 0.4}, {X: 0, Y: 0, W: 0.1, H: 0.1}}

	tests := []struct {
		name   string
		body   string
		layout overlap.Layout
	}{
		{"rows", `{"truth": [[0.1, 0.1, 0.4, 0.4], [0, 0, 0.1, 0.1]], "pred": [[0.1, 0.1, 0.4, 0.4], [0, 0, 0.1, 0.1]]}`, overlap.LayoutBoxMajor},
		{"flat box major", `{"truth_flat": [0.1, 0.1, 0.4, 0.4, 0, 0, 0.1, 0.1], "pred_flat": [0.1, 0.1, 0.4, 0.4, 0, 0, 0.1, 0.1]}`, overlap.LayoutBoxMajor},
		{"flat component major", `{"truth_flat": [0.1, 0, 0.1, 0, 0.4, 0.1, 0.4, 0.1], "pred_flat": [0.1, 0, 0.1, 0, 0.4, 0.1, 0.4, 0.1]}`, overlap.LayoutComponentMajor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "input.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))

			truth, pred, err := loadBatches(path, tt.layout)
			require.NoError(t, err)
			assert.Equal(t, want, truth)
			assert.Equal(t, want, pred)
		})
	}
}

func TestLoadBatches_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"truth": [[0, 0, 1]], "pred": [[0, 0, 1, 1]]}`), 0o644))
	_, _, err := loadBatches(bad, overlap.LayoutBoxMajor)
	assert.ErrorIs(t, err, overlap.ErrShapeMismatch)

	_, _, err = loadBatches(filepath.Join(dir, "missing.json"), overlap.LayoutBoxMajor)
	assert.Error(t, err)
}
