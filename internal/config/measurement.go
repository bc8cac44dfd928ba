package config

import (
	measurementService "PupilMeter/internal/api/measurement/service"
	"PupilMeter/pkg/aggregator"
	"PupilMeter/pkg/alignment"
	"PupilMeter/pkg/geometry"
	"PupilMeter/pkg/quality"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const DefaultMeasurementConfigPath = "./config/measurement.yaml"

type GeometryConfig struct {
	LeftIris             []int   `yaml:"left_iris" validate:"len=4,dive,gte=0"`
	RightIris            []int   `yaml:"right_iris" validate:"len=4,dive,gte=0"`
	LeftTemple           int     `yaml:"left_temple" validate:"gte=0"`
	RightTemple          int     `yaml:"right_temple" validate:"gte=0,nefield=LeftTemple"`
	ReferenceFaceWidthMM float64 `yaml:"reference_face_width_mm" validate:"gt=0"`
	CalibrationFactor    float64 `yaml:"calibration_factor" validate:"gt=0"`
}

type QualityConfig struct {
	NoseTip          int             `yaml:"nose_tip" validate:"gte=0"`
	LeftEyeUpper     int             `yaml:"left_eye_upper" validate:"gte=0"`
	LeftEyeLower     int             `yaml:"left_eye_lower" validate:"gte=0"`
	RightEyeUpper    int             `yaml:"right_eye_upper" validate:"gte=0"`
	RightEyeLower    int             `yaml:"right_eye_lower" validate:"gte=0"`
	Weights          quality.Weights `yaml:"weights"`
	DeviationPenalty float64         `yaml:"deviation_penalty" validate:"gt=0"`
	OpennessGain     float64         `yaml:"openness_gain" validate:"gt=0"`
}

type AlignmentConfig struct {
	OvalWidthRatio       float64 `yaml:"oval_width_ratio" validate:"gt=0,lte=1"`
	OvalHeightRatio      float64 `yaml:"oval_height_ratio" validate:"gt=0,lte=1"`
	SizeTolerance        float64 `yaml:"size_tolerance" validate:"gt=0"`
	OffsetTolerance      float64 `yaml:"offset_tolerance" validate:"gt=0"`
	RotationToleranceDeg float64 `yaml:"rotation_tolerance_deg" validate:"gt=0,lte=90"`
	LeftEyeCluster       []int   `yaml:"left_eye_cluster" validate:"min=1,dive,gte=0"`
	RightEyeCluster      []int   `yaml:"right_eye_cluster" validate:"min=1,dive,gte=0"`
	WindowSize           int     `yaml:"window_size" validate:"gte=1,lte=120"`
	MaxDrift             float64 `yaml:"max_drift" validate:"gte=0"`
}

type AggregatorConfig struct {
	StabilityThreshold int     `yaml:"stability_threshold" validate:"gte=1"`
	MeasurementFrames  int     `yaml:"measurement_frames" validate:"gte=1,lte=1000"`
	MinQuality         float64 `yaml:"min_quality" validate:"gte=0,lte=1"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
	ResultTTL     time.Duration `yaml:"result_ttl" validate:"gt=0"`
	// MaxSessions caps concurrently open sessions. Zero means no cap.
	MaxSessions int `yaml:"max_sessions" validate:"gte=0"`
}

// MeasurementConfig carries every tunable constant of the measurement
// pipeline.
type MeasurementConfig struct {
	Geometry   GeometryConfig   `yaml:"geometry"`
	Quality    QualityConfig    `yaml:"quality"`
	Alignment  AlignmentConfig  `yaml:"alignment"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Session    SessionConfig    `yaml:"session"`
}

func DefaultMeasurementConfig() MeasurementConfig {
	g := geometry.DefaultConfig()
	q := quality.DefaultConfig()
	a := alignment.DefaultConfig()
	agg := aggregator.DefaultConfig()

	return MeasurementConfig{
		Geometry: GeometryConfig{
			LeftIris:             g.LeftIris,
			RightIris:            g.RightIris,
			LeftTemple:           g.LeftTemple,
			RightTemple:          g.RightTemple,
			ReferenceFaceWidthMM: g.ReferenceFaceWidthMM,
			CalibrationFactor:    g.CalibrationFactor,
		},
		Quality: QualityConfig{
			NoseTip:          q.NoseTip,
			LeftEyeUpper:     q.LeftEyeUpper,
			LeftEyeLower:     q.LeftEyeLower,
			RightEyeUpper:    q.RightEyeUpper,
			RightEyeLower:    q.RightEyeLower,
			Weights:          q.Weights,
			DeviationPenalty: q.DeviationPenalty,
			OpennessGain:     q.OpennessGain,
		},
		Alignment: AlignmentConfig{
			OvalWidthRatio:       a.OvalWidthRatio,
			OvalHeightRatio:      a.OvalHeightRatio,
			SizeTolerance:        a.SizeTolerance,
			OffsetTolerance:      a.OffsetTolerance,
			RotationToleranceDeg: a.RotationToleranceDeg,
			LeftEyeCluster:       a.LeftEyeCluster,
			RightEyeCluster:      a.RightEyeCluster,
			WindowSize:           a.WindowSize,
			MaxDrift:             a.MaxDrift,
		},
		Aggregator: AggregatorConfig{
			StabilityThreshold: agg.StabilityThreshold,
			MeasurementFrames:  agg.MeasurementFrames,
			MinQuality:         agg.MinQuality,
		},
		Session: SessionConfig{
			IdleTimeout:   2 * time.Minute,
			SweepInterval: 15 * time.Second,
			ResultTTL:     30 * time.Minute,
			MaxSessions:   1000,
		},
	}
}

// LoadMeasurementConfig reads path over the defaults, so a file only needs the
// keys it changes. A missing file yields the defaults.
func LoadMeasurementConfig(path string, validate *validator.Validate) (*MeasurementConfig, error) {
	cfg := DefaultMeasurementConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read measurement config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse measurement config: %w", err)
		}
	}

	if raw := os.Getenv("SESSION_IDLE_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("parse SESSION_IDLE_TIMEOUT: %w", err)
		}
		cfg.Session.IdleTimeout = timeout
	}

	if err := cfg.Validate(validate); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c MeasurementConfig) Validate(validate *validator.Validate) error {
	if validate == nil {
		validate = NewValidator()
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid measurement config: %w", err)
	}
	return nil
}

func (c MeasurementConfig) ExtractorConfig() geometry.Config {
	return geometry.Config{
		LeftIris:             c.Geometry.LeftIris,
		RightIris:            c.Geometry.RightIris,
		LeftTemple:           c.Geometry.LeftTemple,
		RightTemple:          c.Geometry.RightTemple,
		ReferenceFaceWidthMM: c.Geometry.ReferenceFaceWidthMM,
		CalibrationFactor:    c.Geometry.CalibrationFactor,
	}
}

func (c MeasurementConfig) EvaluatorConfig() quality.Config {
	return quality.Config{
		NoseTip:          c.Quality.NoseTip,
		LeftEyeUpper:     c.Quality.LeftEyeUpper,
		LeftEyeLower:     c.Quality.LeftEyeLower,
		RightEyeUpper:    c.Quality.RightEyeUpper,
		RightEyeLower:    c.Quality.RightEyeLower,
		Weights:          c.Quality.Weights,
		DeviationPenalty: c.Quality.DeviationPenalty,
		OpennessGain:     c.Quality.OpennessGain,
	}
}

func (c MeasurementConfig) GuideConfig() alignment.Config {
	return alignment.Config{
		OvalWidthRatio:       c.Alignment.OvalWidthRatio,
		OvalHeightRatio:      c.Alignment.OvalHeightRatio,
		SizeTolerance:        c.Alignment.SizeTolerance,
		OffsetTolerance:      c.Alignment.OffsetTolerance,
		RotationToleranceDeg: c.Alignment.RotationToleranceDeg,
		LeftEyeCluster:       c.Alignment.LeftEyeCluster,
		RightEyeCluster:      c.Alignment.RightEyeCluster,
		WindowSize:           c.Alignment.WindowSize,
		MaxDrift:             c.Alignment.MaxDrift,
	}
}

func (c MeasurementConfig) AggregationConfig() aggregator.Config {
	return aggregator.Config{
		StabilityThreshold: c.Aggregator.StabilityThreshold,
		MeasurementFrames:  c.Aggregator.MeasurementFrames,
		MinQuality:         c.Aggregator.MinQuality,
	}
}

func (c MeasurementConfig) ServiceSettings() measurementService.Settings {
	return measurementService.Settings{
		Geometry:      c.ExtractorConfig(),
		Quality:       c.EvaluatorConfig(),
		Alignment:     c.GuideConfig(),
		Aggregator:    c.AggregationConfig(),
		IdleTimeout:   c.Session.IdleTimeout,
		SweepInterval: c.Session.SweepInterval,
		ResultTTL:     c.Session.ResultTTL,
		MaxSessions:   c.Session.MaxSessions,
	}
}
