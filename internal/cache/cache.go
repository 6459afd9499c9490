// Package cache — look-aside кеш. Кеш только ускоряет чтение: любая
// ошибка логируется и проглатывается, операции бизнес-логики от него
// не зависят.
package cache

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"
)

// Cache — порт кеша. Реализации: Redis, LRU (в памяти процесса), Noop.
type Cache interface {
	// Get возвращает значение и true при попадании.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set сохраняет значение на ttl. false — значение не сохранено.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool
	// Invalidate удаляет ключ. false — удалить не удалось.
	Invalidate(ctx context.Context, key string) bool
}

// GetJSON читает и декодирует значение. Повреждённое значение
// считается промахом и удаляется.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var zero T
	raw, ok := c.Get(ctx, key)
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		log.WithError(err).WithField("key", key).Warn("Повреждённое значение в кеше")
		c.Invalidate(ctx, key)
		return zero, false
	}
	return v, true
}

// SetJSON кодирует и сохраняет значение.
func SetJSON(ctx context.Context, c Cache, key string, value any, ttl time.Duration) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("Не удалось закодировать значение для кеша")
		return false
	}
	return c.Set(ctx, key, raw, ttl)
}

// Noop — кеш, который ничего не хранит.
type Noop struct{}

// NewNoop создаёт пустой кеш.
func NewNoop() Noop { return Noop{} }

func (Noop) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (Noop) Set(context.Context, string, []byte, time.Duration) bool { return false }

func (Noop) Invalidate(context.Context, string) bool { return true }
