// Package quality scores how usable a single frame is for a PD measurement.
package quality

import (
	"PupilMeter/internal/entity"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// ErrComputation is never returned by Evaluate; it is only logged.
var ErrComputation = errors.New("quality computation failed")

type Weights struct {
	Orientation float64 `yaml:"orientation"`
	EyeOpenness float64 `yaml:"eye_openness"`
	Gaze        float64 `yaml:"gaze"`
}

type Config struct {
	NoseTip          int
	LeftEyeUpper     int
	LeftEyeLower     int
	RightEyeUpper    int
	RightEyeLower    int
	Weights          Weights
	DeviationPenalty float64
	OpennessGain     float64
}

func DefaultConfig() Config {
	return Config{
		NoseTip:       4,
		LeftEyeUpper:  386,
		LeftEyeLower:  374,
		RightEyeUpper: 159,
		RightEyeLower: 145,
		Weights: Weights{
			Orientation: 0.4,
			EyeOpenness: 0.3,
			Gaze:        0.3,
		},
		DeviationPenalty: 4,
		OpennessGain:     10,
	}
}

type Evaluator struct {
	cfg Config
	log *logrus.Logger
}

func New(cfg Config, log *logrus.Logger) *Evaluator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Evaluator{cfg: cfg, log: log}
}

// Scores holds the normalized sub-scores behind a quality value.
type Scores struct {
	Orientation float64 `json:"orientation"`
	EyeOpenness float64 `json:"eye_openness"`
	Gaze        float64 `json:"gaze"`
	Total       float64 `json:"total"`
}

// Evaluate returns a score in [0,1] for normalized landmarks and the two
// normalized iris centres. Any missing or non-finite input yields 0.
func (e *Evaluator) Evaluate(landmarks entity.LandmarkSet, left, right entity.Point) float64 {
	scores, err := e.Score(landmarks, left, right)
	if err != nil {
		e.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Debug("Quality scoring failed closed")
		return 0
	}
	return scores.Total
}

// Score is Evaluate with the sub-scores and the failure reason exposed.
func (e *Evaluator) Score(landmarks entity.LandmarkSet, left, right entity.Point) (Scores, error) {
	nose, err := e.landmark(landmarks, e.cfg.NoseTip)
	if err != nil {
		return Scores{}, err
	}

	leftGap, err := e.verticalGap(landmarks, e.cfg.LeftEyeUpper, e.cfg.LeftEyeLower)
	if err != nil {
		return Scores{}, err
	}
	rightGap, err := e.verticalGap(landmarks, e.cfg.RightEyeUpper, e.cfg.RightEyeLower)
	if err != nil {
		return Scores{}, err
	}

	gazeX := (left.X + right.X) / 2
	if !finite(gazeX) {
		return Scores{}, fmt.Errorf("%w: non-finite iris centre", ErrComputation)
	}

	s := Scores{
		Orientation: math.Max(0, 1-math.Abs(0.5-nose.X)*e.cfg.DeviationPenalty),
		EyeOpenness: math.Min(1, math.Min(leftGap, rightGap)*e.cfg.OpennessGain),
		Gaze:        math.Max(0, 1-math.Abs(0.5-gazeX)*e.cfg.DeviationPenalty),
	}

	w := e.cfg.Weights
	total := s.Orientation*w.Orientation + s.EyeOpenness*w.EyeOpenness + s.Gaze*w.Gaze
	s.Total = round2(clamp01(total))

	return s, nil
}

func (e *Evaluator) landmark(landmarks entity.LandmarkSet, idx int) (entity.Landmark, error) {
	lm, ok := landmarks[idx]
	if !ok {
		return entity.Landmark{}, fmt.Errorf("%w: missing landmark %d", ErrComputation, idx)
	}
	if !finite(lm.X) || !finite(lm.Y) {
		return entity.Landmark{}, fmt.Errorf("%w: non-finite landmark %d", ErrComputation, idx)
	}
	return lm, nil
}

func (e *Evaluator) verticalGap(landmarks entity.LandmarkSet, upper, lower int) (float64, error) {
	top, err := e.landmark(landmarks, upper)
	if err != nil {
		return 0, err
	}
	bottom, err := e.landmark(landmarks, lower)
	if err != nil {
		return 0, err
	}
	return math.Abs(top.Y - bottom.Y), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
