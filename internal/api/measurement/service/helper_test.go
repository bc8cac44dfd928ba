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
	"errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"io"
	"sync"
	"time"
)

const (
	frameWidth  = 640
	frameHeight = 480
)

// centredFace builds a level face of width 0.4 centred in a 640x480 frame,
// with irises 0.16 apart and eyes open by 0.04.
func centredFace() entity.Frame {
	set := entity.LandmarkSet{
		127: {X: 0.3, Y: 0.5},
		356: {X: 0.7, Y: 0.5},
		10:  {X: 0.5, Y: 0.2},
		152: {X: 0.5, Y: 0.8},
		4:   {X: 0.5, Y: 0.55},
		386: {X: 0.58, Y: 0.43},
		374: {X: 0.58, Y: 0.47},
		159: {X: 0.42, Y: 0.43},
		145: {X: 0.42, Y: 0.47},
	}
	eye := func(first int, cx, cy float64) {
		const d = 0.01
		set[first] = entity.Landmark{X: cx, Y: cy}
		set[first+1] = entity.Landmark{X: cx + d, Y: cy}
		set[first+2] = entity.Landmark{X: cx, Y: cy - d}
		set[first+3] = entity.Landmark{X: cx - d, Y: cy}
		set[first+4] = entity.Landmark{X: cx, Y: cy + d}
	}
	eye(468, 0.42, 0.45)
	eye(473, 0.58, 0.45)

	return entity.Frame{Landmarks: set, Width: frameWidth, Height: frameHeight}
}

func expectedPDMM() float64 {
	return 102.4 * (145.0 / 256.0) * 0.943
}

func testSettings() Settings {
	align := alignment.DefaultConfig()
	align.WindowSize = 2

	return Settings{
		Geometry:  geometry.DefaultConfig(),
		Quality:   quality.DefaultConfig(),
		Alignment: align,
		Aggregator: aggregator.Config{
			StabilityThreshold: 3,
			MeasurementFrames:  2,
		},
		IdleTimeout:   time.Minute,
		SweepInterval: time.Second,
		ResultTTL:     time.Hour,
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type fakeRedis struct {
	mu      sync.Mutex
	entries map[string]entity.PupilMeasurement
	ttl     time.Duration
	err     error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{entries: map[string]entity.PupilMeasurement{}}
}

func (f *fakeRedis) SetMeasurement(_ context.Context, sessionID string, m entity.PupilMeasurement, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries[sessionID] = m
	f.ttl = expiration
	return nil
}

func (f *fakeRedis) GetMeasurement(_ context.Context, sessionID string) (*entity.PupilMeasurement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.entries[sessionID]
	if !ok {
		return nil, redis.ErrNotFound
	}
	return &m, nil
}

func (f *fakeRedis) DeleteMeasurement(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, sessionID)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	records []entity.MeasurementRecord
	err     error
}

func (f *fakeStore) CreateMeasurement(_ context.Context, record entity.MeasurementRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeStore) GetMeasurementsBySessionID(_ context.Context, sessionID string) ([]entity.MeasurementRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []entity.MeasurementRecord
	for _, r := range f.records {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRepository struct {
	store *fakeStore
	err   error
}

func (f *fakeRepository) NewClient(bool) (measurementRepository.Client, error) {
	if f.err != nil {
		return measurementRepository.Client{}, f.err
	}
	return measurementRepository.Client{
		Measurement: f.store,
		Commit:      func() error { return nil },
		Rollback:    func() error { return nil },
	}, nil
}

var errLandmarks = errors.New("landmark service down")

type fakeLandmarks struct {
	frame *entity.Frame
	err   error
	calls int
}

func (f *fakeLandmarks) ExtractLandmarks([]byte) (*entity.Frame, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.frame, nil
}

func (f *fakeLandmarks) IsConnected() bool { return f.err == nil }
func (f *fakeLandmarks) Reconnect() error  { return nil }
func (f *fakeLandmarks) CloseConnections() {}

type fixture struct {
	svc       *measurementService
	redis     *fakeRedis
	store     *fakeStore
	landmarks *fakeLandmarks
	clock     time.Time
}

func newFixture(settings Settings) *fixture {
	f := &fixture{
		redis:     newFakeRedis(),
		store:     &fakeStore{},
		landmarks: &fakeLandmarks{},
		clock:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = newMeasurementService(testLogger(), settings, &fakeRepository{store: f.store}, f.redis, f.landmarks, utils.New())
	f.svc.now = func() time.Time { return f.clock }
	return f
}
