package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// opTimeout ограничивает каждую операцию с Redis, чтобы медленный кеш
// не тормозил запросы.
const opTimeout = 500 * time.Millisecond

// Redis — кеш поверх go-redis.
type Redis struct {
	client *redis.Client
}

// RedisConfig — параметры подключения.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis подключается к Redis и проверяет соединение через PING.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis недоступен: %w", err)
	}

	log.WithField("addr", cfg.Addr).Info("Подключение к Redis установлено")
	return &Redis{client: client}, nil
}

// NewRedisFromClient оборачивает готовый клиент без проверки соединения.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("Ошибка чтения из Redis")
		return nil, false
	}
	return raw, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("Ошибка записи в Redis")
		return false
	}
	return true
}

func (r *Redis) Invalidate(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, key).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("Ошибка удаления из Redis")
		return false
	}
	return true
}

// Close закрывает соединения с Redis.
func (r *Redis) Close() error {
	return r.client.Close()
}
