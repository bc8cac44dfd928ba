package redis

import (
	"PupilMeter/internal/entity"
	"context"
	"errors"
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

// ErrNotFound is returned when no measurement is cached for a session.
var ErrNotFound = errors.New("measurement not cached")

type IRedis interface {
	SetMeasurement(ctx context.Context, sessionID string, m entity.PupilMeasurement, expiration time.Duration) error
	GetMeasurement(ctx context.Context, sessionID string) (*entity.PupilMeasurement, error)
	DeleteMeasurement(ctx context.Context, sessionID string) error
}

type redisClient struct {
	client redis.Cmdable
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

// NewWithClient wraps an existing client, e.g. a cluster or ring client.
func NewWithClient(client redis.Cmdable) IRedis {
	return &redisClient{client: client}
}

func measurementKey(sessionID string) string {
	return fmt.Sprintf("pd:session:%s:measurement", sessionID)
}

func (r *redisClient) SetMeasurement(ctx context.Context, sessionID string, m entity.PupilMeasurement, expiration time.Duration) error {
	key := measurementKey(sessionID)
	logrus.Debug(fmt.Sprintf("Caching measurement for key %s with expiration %v", key, expiration))

	payload, err := jsoniter.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode measurement: %w", err)
	}

	if err := r.client.Set(ctx, key, payload, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error caching measurement for key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) GetMeasurement(ctx context.Context, sessionID string) (*entity.PupilMeasurement, error) {
	key := measurementKey(sessionID)

	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		logrus.Debug(fmt.Sprintf("Measurement not found for key %s", key))
		return nil, ErrNotFound
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting measurement for key %s: %v", key, err))
		return nil, err
	}

	var m entity.PupilMeasurement
	if err := jsoniter.Unmarshal(val, &m); err != nil {
		return nil, fmt.Errorf("decode measurement: %w", err)
	}
	return &m, nil
}

func (r *redisClient) DeleteMeasurement(ctx context.Context, sessionID string) error {
	key := measurementKey(sessionID)
	result, err := r.client.Del(ctx, key).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error deleting measurement for key %s: %v", key, err))
		return err
	}

	if result == 0 {
		logrus.Debug(fmt.Sprintf("Measurement key %s not found for deletion", key))
	}
	return nil
}
