package overlap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"fp32", func(c *Config) { c.Precision = PrecisionFP32 }, false},
		{"error policy", func(c *Config) { c.DenominatorPolicy = DenominatorError }, false},
		{"unknown precision", func(c *Config) { c.Precision = "FP16" }, true},
		{"unknown layout", func(c *Config) { c.Layout = "" }, true},
		{"unknown policy", func(c *Config) { c.DenominatorPolicy = "nan" }, true},
		{"zero scale", func(c *Config) { c.LossScale = 0 }, true},
		{"empty clip range", func(c *Config) { c.ClipMin, c.ClipMax = 1, 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)

				_, err = NewMetric(config)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_SaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metric.json")

	config := DefaultConfig()
	config.Precision = PrecisionFP32
	config.LossScale = 10
	require.NoError(t, config.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)

	// Missing fields fall back to the defaults.
	partial := filepath.Join(dir, "partial.json")
	require.NoError(t, os.WriteFile(partial, []byte(`{"denominator_policy": "error"}`), 0o644))

	loaded, err = LoadConfig(partial)
	require.NoError(t, err)
	assert.Equal(t, DenominatorError, loaded.DenominatorPolicy)
	assert.Equal(t, 100.0, loaded.LossScale)
	assert.True(t, loaded.RejectNonFinite)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"loss_scale": -1}`), 0o644))
	_, err = LoadConfig(invalid)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
