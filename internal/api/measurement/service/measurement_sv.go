package measurementService

import (
	"PupilMeter/internal/api/measurement"
	"PupilMeter/internal/entity"
	contextPkg "PupilMeter/pkg/context"
	"PupilMeter/pkg/redis"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *measurementService) StartSession(ctx context.Context, mode entity.SessionMode) (*entity.SessionSnapshot, error) {
	if mode == "" {
		mode = entity.SessionModeAuto
	}
	if !mode.Valid() {
		return nil, measurement.ErrInvalidSessionMode
	}
	if s.settings.MaxSessions > 0 && s.sessions.Count() >= s.settings.MaxSessions {
		return nil, measurement.ErrTooManySessions
	}

	sess := newSession(s.utils.NewUUID(), mode, s.settings, s.extractor, s.evaluator, s.now())
	s.sessions.Set(sess.id, sess)

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sess.id,
		"mode":       string(mode),
	}).Info("Measurement session started")

	return sess.snapshot(), nil
}

func (s *measurementService) StopSession(ctx context.Context, sessionID string) error {
	if _, ok := s.sessions.Pop(sessionID); !ok {
		return measurement.ErrSessionNotFound
	}

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	}).Info("Measurement session stopped")

	return nil
}

func (s *measurementService) ProcessFrame(ctx context.Context, sessionID string, frame entity.Frame) (*entity.FrameResult, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, measurement.ErrSessionNotFound
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, measurement.ErrInvalidFrame
	}

	result := sess.process(frame, s.now())

	fields := logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
		"alignment":  string(result.Alignment.State),
		"state":      result.State,
		"buffered":   result.Buffered,
	}
	if result.SkipReason != nil {
		fields["skip_reason"] = result.SkipReason.Error()
	}
	s.log.WithFields(fields).Debug("Frame processed")

	if result.Final != nil {
		s.persist(ctx, sess, *result.Final)
	}

	return result, nil
}

func (s *measurementService) ProcessImage(ctx context.Context, sessionID string, image []byte) (*entity.FrameResult, error) {
	if !s.sessions.Has(sessionID) {
		return nil, measurement.ErrSessionNotFound
	}
	if len(image) == 0 {
		return nil, measurement.ErrInvalidFrame
	}
	if s.landmarks == nil {
		return nil, measurement.ErrLandmarkServiceUnavailable
	}

	frame, err := s.landmarks.ExtractLandmarks(image)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Landmark extraction failed")
		return nil, fmt.Errorf("%w: %v", measurement.ErrLandmarkServiceUnavailable, err)
	}

	return s.ProcessFrame(ctx, sessionID, *frame)
}

func (s *measurementService) TriggerMeasurement(ctx context.Context, sessionID string) (*entity.SessionSnapshot, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, measurement.ErrSessionNotFound
	}

	sess.trigger(s.now())

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sessionID,
	}).Info("Measurement triggered manually")

	return sess.snapshot(), nil
}

func (s *measurementService) GetStatus(ctx context.Context, sessionID string) (*entity.SessionSnapshot, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, measurement.ErrSessionNotFound
	}
	return sess.snapshot(), nil
}

// GetMeasurement returns the latest final measurement, falling back to the
// cache once the session itself is gone.
func (s *measurementService) GetMeasurement(ctx context.Context, sessionID string) (*entity.PupilMeasurement, error) {
	sess, live := s.sessions.Get(sessionID)
	if live {
		if m := sess.lastMeasurement(); m != nil {
			return m, nil
		}
	}

	if s.redis != nil {
		m, err := s.redis.GetMeasurement(ctx, sessionID)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, redis.ErrNotFound) {
			s.log.WithFields(logrus.Fields{
				"request_id": contextPkg.GetRequestID(ctx),
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Failed to read cached measurement")
		}
	}

	if !live {
		return nil, measurement.ErrSessionNotFound
	}
	return nil, measurement.ErrNoMeasurement
}

func (s *measurementService) GetHistory(ctx context.Context, sessionID string) ([]entity.MeasurementRecord, error) {
	if s.repo == nil {
		return []entity.MeasurementRecord{}, nil
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", measurement.ErrInternalServerError, err)
	}

	records, err := client.Measurement.GetMeasurementsBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", measurement.ErrInternalServerError, err)
	}

	return records, nil
}

// persist stores a completed measurement in the cache and the history table.
// Failures are logged; they never fail the frame that produced the result.
func (s *measurementService) persist(ctx context.Context, sess *session, final entity.PupilMeasurement) {
	fields := logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": sess.id,
		"pd_mm":      final.PDMM,
		"confidence": final.Confidence,
	}
	s.log.WithFields(fields).Info("Measurement completed")

	if s.redis != nil {
		if err := s.redis.SetMeasurement(ctx, sess.id, final, s.settings.ResultTTL); err != nil {
			s.log.WithFields(fields).WithError(err).Error("Failed to cache measurement")
		}
	}

	if s.repo == nil {
		return
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to open measurement repository")
		return
	}

	record := entity.MeasurementRecord{
		ID:         s.utils.NewUUID(),
		SessionID:  sess.id,
		Mode:       sess.mode,
		PDMM:       final.PDMM,
		PDPixels:   final.PDPixels,
		Confidence: final.Confidence,
		LeftPupil:  final.LeftPupil,
		RightPupil: final.RightPupil,
		FrameCount: s.settings.Aggregator.MeasurementFrames,
		MeasuredAt: s.now(),
	}
	if err := client.Measurement.CreateMeasurement(ctx, record); err != nil {
		s.log.WithFields(fields).WithError(err).Error("Failed to store measurement history")
	}
}
