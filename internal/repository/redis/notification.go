package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/citywatch/report-api/internal/model"
	"github.com/citywatch/report-api/internal/repository"
	"github.com/citywatch/report-api/pkg/metrics"
)

const notificationKeyPrefix = "notifications:"

// KV is the narrow key-value surface the store needs. *redis.Client
// satisfies it through redisKV; tests substitute an in-memory map.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type redisKV struct {
	client *redis.Client
}

// NewKV adapts a redis client to the KV interface.
func NewKV(client *redis.Client) KV {
	return &redisKV{client: client}
}

func (r *redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *redisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

type notificationStore struct {
	kv      KV
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

func NewNotificationStore(kv KV, logger *zerolog.Logger, m *metrics.Metrics) repository.NotificationStore {
	return &notificationStore{
		kv:      kv,
		logger:  logger,
		metrics: m,
	}
}

func notificationKey(userID string) string {
	return notificationKeyPrefix + userID
}

func (s *notificationStore) LoadAll(ctx context.Context, userID string) ([]model.Notification, error) {
	raw, found, err := s.kv.Get(ctx, notificationKey(userID))
	if err != nil {
		s.metrics.StoreOperations.WithLabelValues("load", "error").Inc()
		return nil, fmt.Errorf("failed to load notifications: %w", err)
	}
	if !found {
		s.metrics.StoreOperations.WithLabelValues("load", "ok").Inc()
		return []model.Notification{}, nil
	}

	var records []model.Notification
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		// Fail closed: a corrupt value must not crash the caller.
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("corrupt notification list, treating as empty")
		s.metrics.StoreOperations.WithLabelValues("load", "corrupt").Inc()
		return []model.Notification{}, nil
	}

	s.metrics.StoreOperations.WithLabelValues("load", "ok").Inc()
	return records, nil
}

func (s *notificationStore) SaveAll(ctx context.Context, userID string, records []model.Notification) error {
	if records == nil {
		records = []model.Notification{}
	}

	payload, err := json.Marshal(records)
	if err != nil {
		s.metrics.StoreOperations.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("failed to serialize notifications: %w", err)
	}

	if err := s.kv.Set(ctx, notificationKey(userID), string(payload)); err != nil {
		s.metrics.StoreOperations.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("failed to save notifications: %w", err)
	}

	s.metrics.StoreOperations.WithLabelValues("save", "ok").Inc()
	s.metrics.StoreListSize.Observe(float64(len(records)))
	return nil
}
