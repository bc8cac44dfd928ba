package measurementService

import (
	"PupilMeter/internal/entity"
	"PupilMeter/pkg/aggregator"
	"PupilMeter/pkg/alignment"
	"PupilMeter/pkg/geometry"
	"PupilMeter/pkg/quality"
	"sync"
	"time"
)

// session owns all rolling state of one measurement pipeline. Frames for a
// session are processed one at a time under mu.
type session struct {
	mu sync.Mutex

	id         string
	mode       entity.SessionMode
	extractor  *geometry.Extractor
	evaluator  *quality.Evaluator
	guide      *alignment.Guide
	aggregator *aggregator.Aggregator

	status     entity.AlignmentStatus
	last       *entity.PupilMeasurement
	createdAt  time.Time
	lastSeenAt time.Time
}

func newSession(id string, mode entity.SessionMode, settings Settings, extractor *geometry.Extractor, evaluator *quality.Evaluator, now time.Time) *session {
	aggCfg := settings.Aggregator
	if mode == entity.SessionModeManual {
		aggCfg.StabilityThreshold = 0
	}

	return &session{
		id:         id,
		mode:       mode,
		extractor:  extractor,
		evaluator:  evaluator,
		guide:      alignment.New(settings.Alignment),
		aggregator: aggregator.New(aggCfg),
		status: entity.AlignmentStatus{
			State:   entity.AlignmentNoFace,
			Message: alignment.MsgNoFace,
		},
		createdAt:  now,
		lastSeenAt: now,
	}
}

// process runs one frame through alignment, geometry, quality and
// aggregation. A frame whose geometry fails is reported with SkipReason and
// leaves the buffer untouched.
func (s *session) process(frame entity.Frame, now time.Time) *entity.FrameResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeenAt = now
	status := s.guide.Check(frame)
	s.status = status

	result := &entity.FrameResult{
		SessionID: s.id,
		Alignment: status,
	}

	if status.State == entity.AlignmentNoFace {
		s.aggregator.Observe(false)
		s.fill(result)
		return result
	}

	candidate, err := s.measure(frame)
	if err != nil {
		result.SkipReason = err
	} else {
		result.Candidate = candidate
		if final, done := s.aggregator.Add(*candidate); done {
			result.Final = final
			s.last = final
		}
	}

	s.aggregator.Observe(status.Aligned)
	s.fill(result)
	return result
}

func (s *session) measure(frame entity.Frame) (*entity.PupilMeasurement, error) {
	candidate, err := s.extractor.MeasureFrame(frame)
	if err != nil {
		return nil, err
	}

	left, right, err := s.extractor.IrisCenters(frame.Landmarks)
	if err != nil {
		return nil, err
	}
	candidate.Confidence = s.evaluator.Evaluate(frame.Landmarks, left, right)

	return candidate, nil
}

func (s *session) fill(result *entity.FrameResult) {
	result.State = string(s.aggregator.State())
	result.StableFrames = s.aggregator.StableFrames()
	result.Buffered = s.aggregator.Buffered()
}

func (s *session) trigger(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeenAt = now
	s.aggregator.Start()
}

func (s *session) snapshot() *entity.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &entity.SessionSnapshot{
		ID:             s.id,
		Mode:           s.mode,
		State:          string(s.aggregator.State()),
		Alignment:      s.status,
		StableFrames:   s.aggregator.StableFrames(),
		BufferedFrames: s.aggregator.Buffered(),
		Completed:      s.aggregator.Completed(),
		CreatedAt:      s.createdAt,
		LastSeenAt:     s.lastSeenAt,
	}
	if s.last != nil {
		m := *s.last
		snap.LastMeasurement = &m
	}
	return snap
}

func (s *session) lastMeasurement() *entity.PupilMeasurement {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return nil
	}
	m := *s.last
	return &m
}

func (s *session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeenAt)
}
