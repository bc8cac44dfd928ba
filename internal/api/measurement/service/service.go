package measurementService

import (
	measurementRepository "PupilMeter/internal/api/measurement/repository"
	"PupilMeter/internal/entity"
	"PupilMeter/pkg/aggregator"
	"PupilMeter/pkg/alignment"
	"PupilMeter/pkg/geometry"
	"PupilMeter/pkg/quality"
	"PupilMeter/pkg/redis"
	"PupilMeter/pkg/utils"
	websocketPkg "PupilMeter/pkg/websocket"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"sync"
	"time"
)

type IMeasurementService interface {
	StartSession(ctx context.Context, mode entity.SessionMode) (*entity.SessionSnapshot, error)
	StopSession(ctx context.Context, sessionID string) error
	ProcessFrame(ctx context.Context, sessionID string, frame entity.Frame) (*entity.FrameResult, error)
	ProcessImage(ctx context.Context, sessionID string, image []byte) (*entity.FrameResult, error)
	TriggerMeasurement(ctx context.Context, sessionID string) (*entity.SessionSnapshot, error)
	GetStatus(ctx context.Context, sessionID string) (*entity.SessionSnapshot, error)
	GetMeasurement(ctx context.Context, sessionID string) (*entity.PupilMeasurement, error)
	GetHistory(ctx context.Context, sessionID string) ([]entity.MeasurementRecord, error)
	Close()
}

// Settings carries the tuning of every pipeline stage plus session
// housekeeping.
type Settings struct {
	Geometry   geometry.Config
	Quality    quality.Config
	Alignment  alignment.Config
	Aggregator aggregator.Config

	IdleTimeout   time.Duration
	SweepInterval time.Duration
	ResultTTL     time.Duration
	MaxSessions   int
}

type measurementService struct {
	log       *logrus.Logger
	settings  Settings
	repo      measurementRepository.Repository
	redis     redis.IRedis
	landmarks websocketPkg.IWebsocket
	utils     utils.IUtils

	extractor *geometry.Extractor
	evaluator *quality.Evaluator
	sessions  cmap.ConcurrentMap[string, *session]

	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMeasurementService(
	log *logrus.Logger,
	settings Settings,
	repo measurementRepository.Repository,
	redis redis.IRedis,
	landmarks websocketPkg.IWebsocket,
	utils utils.IUtils,
) IMeasurementService {
	s := newMeasurementService(log, settings, repo, redis, landmarks, utils)
	if settings.IdleTimeout > 0 && settings.SweepInterval > 0 {
		go s.janitor()
	}
	return s
}

func newMeasurementService(
	log *logrus.Logger,
	settings Settings,
	repo measurementRepository.Repository,
	redis redis.IRedis,
	landmarks websocketPkg.IWebsocket,
	utils utils.IUtils,
) *measurementService {
	return &measurementService{
		log:       log,
		settings:  settings,
		repo:      repo,
		redis:     redis,
		landmarks: landmarks,
		utils:     utils,
		extractor: geometry.New(settings.Geometry),
		evaluator: quality.New(settings.Quality, log),
		sessions:  cmap.New[*session](),
		now:       time.Now,
		stop:      make(chan struct{}),
	}
}

func (s *measurementService) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

func (s *measurementService) janitor() {
	ticker := time.NewTicker(s.settings.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops sessions that have not seen a frame or request within the idle
// timeout. It returns how many were removed.
func (s *measurementService) sweep() int {
	now := s.now()
	removed := 0

	for item := range s.sessions.IterBuffered() {
		if item.Val.idleSince(now) < s.settings.IdleTimeout {
			continue
		}
		if s.sessions.RemoveCb(item.Key, func(_ string, v *session, exists bool) bool {
			return exists && v == item.Val
		}) {
			removed++
			s.log.WithFields(logrus.Fields{
				"session_id": item.Key,
			}).Info("Evicted idle measurement session")
		}
	}

	return removed
}
