// Package aggregator turns a stream of per-frame PD candidates into one
// averaged measurement per aggregation cycle, gated by how long the face has
// been held aligned.
//
// An Aggregator belongs to exactly one session and is not safe for concurrent
// use.
package aggregator

import (
	"PupilMeter/internal/entity"
)

type State string

const (
	StateIdle         State = "IDLE"
	StateAccumulating State = "ACCUMULATING_STABILITY"
	StateMeasuring    State = "MEASURING"
)

type Config struct {
	// StabilityThreshold is the number of consecutive aligned frames needed
	// before buffering starts. Zero or less disables the automatic trigger.
	StabilityThreshold int
	MeasurementFrames  int
	// MinQuality drops candidates whose confidence is below it. Zero keeps
	// every candidate.
	MinQuality float64
}

func DefaultConfig() Config {
	return Config{
		StabilityThreshold: 75,
		MeasurementFrames:  20,
	}
}

type Aggregator struct {
	cfg          Config
	stableFrames int
	measuring    bool
	buffer       []entity.PupilMeasurement
	completed    int
}

func New(cfg Config) *Aggregator {
	if cfg.MeasurementFrames < 1 {
		cfg.MeasurementFrames = 1
	}
	return &Aggregator{
		cfg:    cfg,
		buffer: make([]entity.PupilMeasurement, 0, cfg.MeasurementFrames),
	}
}

func (a *Aggregator) State() State {
	switch {
	case a.measuring:
		return StateMeasuring
	case a.stableFrames > 0:
		return StateAccumulating
	default:
		return StateIdle
	}
}

func (a *Aggregator) Measuring() bool { return a.measuring }

func (a *Aggregator) StableFrames() int { return a.stableFrames }

func (a *Aggregator) Buffered() int { return len(a.buffer) }

// Completed is the number of aggregation cycles finished so far.
func (a *Aggregator) Completed() int { return a.completed }

// Observe records one frame's alignment. A non-aligned frame resets the
// consecutive counter; reaching the threshold starts measuring. It reports
// whether this call started a measurement.
func (a *Aggregator) Observe(aligned bool) bool {
	if !aligned {
		a.stableFrames = 0
		return false
	}

	a.stableFrames++
	if a.cfg.StabilityThreshold > 0 && a.stableFrames >= a.cfg.StabilityThreshold && !a.measuring {
		a.begin()
		return true
	}
	return false
}

// Start enters the measuring state immediately, regardless of stability.
// Any partially filled buffer is discarded.
func (a *Aggregator) Start() {
	a.begin()
}

// Add buffers a candidate while measuring. When the buffer fills it returns
// the final measurement and true, and the aggregator leaves the measuring
// state. Candidates outside the measuring state are ignored.
func (a *Aggregator) Add(candidate entity.PupilMeasurement) (*entity.PupilMeasurement, bool) {
	if !a.measuring {
		return nil, false
	}
	if a.cfg.MinQuality > 0 && candidate.Confidence < a.cfg.MinQuality {
		return nil, false
	}

	a.buffer = append(a.buffer, candidate)
	if len(a.buffer) < a.cfg.MeasurementFrames {
		return nil, false
	}

	final := average(a.buffer)
	a.buffer = a.buffer[:0]
	a.measuring = false
	a.stableFrames = 0
	a.completed++
	return &final, true
}

// Reset drops all in-flight state. The completed cycle count is kept.
func (a *Aggregator) Reset() {
	a.stableFrames = 0
	a.measuring = false
	a.buffer = a.buffer[:0]
}

func (a *Aggregator) begin() {
	a.measuring = true
	a.buffer = a.buffer[:0]
}

// average takes the mean PD in millimetres and confidence over the buffer;
// pupil positions and pixel PD come from the most recent candidate.
func average(buffer []entity.PupilMeasurement) entity.PupilMeasurement {
	var sumMM, sumConfidence float64
	for _, m := range buffer {
		sumMM += m.PDMM
		sumConfidence += m.Confidence
	}

	n := float64(len(buffer))
	last := buffer[len(buffer)-1]
	return entity.PupilMeasurement{
		LeftPupil:  last.LeftPupil,
		RightPupil: last.RightPupil,
		PDPixels:   last.PDPixels,
		PDMM:       sumMM / n,
		Confidence: sumConfidence / n,
	}
}
