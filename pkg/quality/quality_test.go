package quality

import (
	"PupilMeter/internal/entity"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvaluator() *Evaluator {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(DefaultConfig(), log)
}

func frontalFace(noseX, eyeGap float64) entity.LandmarkSet {
	cfg := DefaultConfig()
	return entity.LandmarkSet{
		cfg.NoseTip:       {X: noseX, Y: 0.55},
		cfg.LeftEyeUpper:  {X: 0.6, Y: 0.45 - eyeGap/2},
		cfg.LeftEyeLower:  {X: 0.6, Y: 0.45 + eyeGap/2},
		cfg.RightEyeUpper: {X: 0.4, Y: 0.45 - eyeGap/2},
		cfg.RightEyeLower: {X: 0.4, Y: 0.45 + eyeGap/2},
	}
}

func TestEvaluatePerfectFrame(t *testing.T) {
	ev := newEvaluator()
	q := ev.Evaluate(frontalFace(0.5, 0.2), entity.Point{X: 0.4, Y: 0.45}, entity.Point{X: 0.6, Y: 0.45})
	assert.Equal(t, 1.0, q)
}

func TestScoreComponents(t *testing.T) {
	ev := newEvaluator()

	// nose 0.1 off-centre, eye gap 0.05, gaze 0.05 off-centre
	s, err := ev.Score(frontalFace(0.6, 0.05), entity.Point{X: 0.45}, entity.Point{X: 0.65})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, s.Orientation, 1e-9)
	assert.InDelta(t, 0.5, s.EyeOpenness, 1e-9)
	assert.InDelta(t, 0.8, s.Gaze, 1e-9)
	assert.Equal(t, 0.63, s.Total)
}

func TestMoreClosedEyeDominates(t *testing.T) {
	ev := newEvaluator()
	cfg := DefaultConfig()
	set := frontalFace(0.5, 0.2)
	set[cfg.RightEyeLower] = entity.Landmark{X: 0.4, Y: set[cfg.RightEyeUpper].Y + 0.02}

	s, err := ev.Score(set, entity.Point{X: 0.4}, entity.Point{X: 0.6})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, s.EyeOpenness, 1e-9)
}

func TestEvaluateFailsClosed(t *testing.T) {
	ev := newEvaluator()
	cfg := DefaultConfig()
	left, right := entity.Point{X: 0.4}, entity.Point{X: 0.6}

	for _, idx := range []int{cfg.NoseTip, cfg.LeftEyeUpper, cfg.LeftEyeLower, cfg.RightEyeUpper, cfg.RightEyeLower} {
		set := frontalFace(0.5, 0.2)
		delete(set, idx)
		assert.Zero(t, ev.Evaluate(set, left, right), "landmark %d removed", idx)
	}

	assert.Zero(t, ev.Evaluate(entity.LandmarkSet{}, left, right))
	assert.Zero(t, ev.Evaluate(frontalFace(0.5, 0.2), entity.Point{X: math.NaN()}, right))

	set := frontalFace(0.5, 0.2)
	set[cfg.NoseTip] = entity.Landmark{X: math.Inf(1)}
	_, err := ev.Score(set, left, right)
	assert.ErrorIs(t, err, ErrComputation)
}

func TestEvaluateStaysInRange(t *testing.T) {
	ev := newEvaluator()
	for _, nose := range []float64{-3, 0, 0.25, 0.5, 0.9, 4} {
		for _, gap := range []float64{0, 0.01, 0.5, 3} {
			for _, gaze := range []float64{-2, 0.1, 0.5, 2} {
				q := ev.Evaluate(frontalFace(nose, gap), entity.Point{X: gaze}, entity.Point{X: gaze})
				assert.GreaterOrEqual(t, q, 0.0)
				assert.LessOrEqual(t, q, 1.0)
			}
		}
	}
}
