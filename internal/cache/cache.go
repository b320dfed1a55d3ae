// Package cache — явный cache-aside поверх Redis. Кеш не является системой записи:
// его потеря означает лишь повторное чтение из БД.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultTTL = 5 * time.Minute

type Manager struct {
	rdb *redis.Client
	l   *logrus.Entry
}

func New(rdb *redis.Client, l *logrus.Logger) *Manager {
	return &Manager{
		rdb: rdb,
		l:   l.WithField("component", "cache"),
	}
}

// Get читает значение по ключу и раскладывает его в dest. Возвращает false, если
// ключ отсутствует. Ошибка Redis не пробрасывается — промах дешевле отказа.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	raw, err := m.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			m.l.WithError(err).WithField("key", key).Warn("cache get failed")
		}
		return false
	}
	if unmarshalErr := json.Unmarshal(raw, dest); unmarshalErr != nil {
		m.l.WithError(unmarshalErr).WithField("key", key).Warn("cache value corrupted, dropping")
		m.rdb.Del(ctx, key)
		return false
	}
	return true
}

func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		m.l.WithError(err).WithField("key", key).Warn("cache value not serializable")
		return
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if setErr := m.rdb.Set(ctx, key, raw, ttl).Err(); setErr != nil {
		m.l.WithError(setErr).WithField("key", key).Warn("cache set failed")
	}
}

// Invalidate удаляет ключи. Вызывается явно в точке мутации данных.
func (m *Manager) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := m.rdb.Del(ctx, keys...).Err(); err != nil {
		m.l.WithError(err).WithField("keys", keys).Warn("cache invalidate failed")
	}
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.rdb.Ping(ctx).Err() //nolint:wrapcheck
}

// Fetch реализует cache-aside: читает значение по ключу, при промахе зовет producer
// и кладет результат в кеш с указанным TTL. Ошибку возвращает только producer.
func Fetch[T any](ctx context.Context, m *Manager, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	var cached T
	if m.Get(ctx, key, &cached) {
		return cached, nil
	}

	produced, err := producer(ctx)
	if err != nil {
		return produced, err
	}

	m.Set(ctx, key, produced, ttl)
	return produced, nil
}
