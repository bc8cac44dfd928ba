package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "measurement.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMeasurementConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "")

	cfg, err := LoadMeasurementConfig(filepath.Join(t.TempDir(), "absent.yaml"), NewValidator())
	require.NoError(t, err)
	assert.Equal(t, DefaultMeasurementConfig(), *cfg)
}

func TestLoadMeasurementConfigOverridesOnlyGivenKeys(t *testing.T) {
	path := writeConfig(t, `
geometry:
  reference_face_width_mm: 150
aggregator:
  stability_threshold: 30
  measurement_frames: 10
session:
  idle_timeout: 45s
`)
	t.Setenv("SESSION_IDLE_TIMEOUT", "")

	cfg, err := LoadMeasurementConfig(path, NewValidator())
	require.NoError(t, err)

	assert.Equal(t, 150.0, cfg.Geometry.ReferenceFaceWidthMM)
	assert.Equal(t, 0.943, cfg.Geometry.CalibrationFactor)
	assert.Equal(t, 30, cfg.Aggregator.StabilityThreshold)
	assert.Equal(t, 10, cfg.Aggregator.MeasurementFrames)
	assert.Equal(t, 45*time.Second, cfg.Session.IdleTimeout)
	assert.Equal(t, DefaultMeasurementConfig().Alignment, cfg.Alignment)

	assert.Equal(t, 150.0, cfg.ExtractorConfig().ReferenceFaceWidthMM)
	assert.Equal(t, 30, cfg.AggregationConfig().StabilityThreshold)
}

func TestLoadMeasurementConfigRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"zero face width":   "geometry:\n  reference_face_width_mm: 0\n",
		"short iris subset": "geometry:\n  left_iris: [1, 2, 3]\n",
		"zero window":       "alignment:\n  window_size: 0\n",
		"no frames":         "aggregator:\n  measurement_frames: 0\n",
		"quality over one":  "aggregator:\n  min_quality: 1.5\n",
		"same temples":      "geometry:\n  left_temple: 5\n  right_temple: 5\n",
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadMeasurementConfig(writeConfig(t, body), NewValidator())
			assert.Error(t, err)
		})
	}

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadMeasurementConfig(writeConfig(t, "geometry: ["), NewValidator())
		assert.Error(t, err)
	})
}

func TestBundledMeasurementConfigIsValid(t *testing.T) {
	cfg, err := LoadMeasurementConfig(filepath.Join("..", "..", DefaultMeasurementConfigPath), NewValidator())
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Aggregator.StabilityThreshold)
	assert.Equal(t, 20, cfg.Aggregator.MeasurementFrames)
}

func TestLoadMeasurementConfigIdleTimeoutFromEnv(t *testing.T) {
	t.Setenv("SESSION_IDLE_TIMEOUT", "90s")

	cfg, err := LoadMeasurementConfig(filepath.Join(t.TempDir(), "absent.yaml"), NewValidator())
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Session.IdleTimeout)

	t.Setenv("SESSION_IDLE_TIMEOUT", "soon")
	_, err = LoadMeasurementConfig(filepath.Join(t.TempDir(), "absent.yaml"), NewValidator())
	assert.Error(t, err)
}

func TestServiceSettings(t *testing.T) {
	cfg := DefaultMeasurementConfig()
	cfg.Aggregator.MinQuality = 0.85

	settings := cfg.ServiceSettings()
	assert.Equal(t, 0.85, settings.Aggregator.MinQuality)
	assert.Equal(t, 145.0, settings.Geometry.ReferenceFaceWidthMM)
	assert.Equal(t, 8, settings.Alignment.WindowSize)
	assert.Equal(t, 2*time.Minute, settings.IdleTimeout)
	assert.Equal(t, 1000, settings.MaxSessions)
}

func TestValidatorReportsYAMLNames(t *testing.T) {
	cfg := DefaultMeasurementConfig()
	cfg.Alignment.WindowSize = 0

	err := cfg.Validate(NewValidator())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window_size")
}
