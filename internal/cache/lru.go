package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// entry — значение с моментом истечения.
type entry struct {
	value     []byte
	expiresAt time.Time
}

// LRU — кеш в памяти процесса. Ограничен по числу записей,
// у каждой записи своё время жизни.
type LRU struct {
	cache *lru.Cache
	now   func() time.Time
}

// NewLRU создаёт кеш на size записей.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания LRU-кеша: %w", err)
	}
	return &LRU{cache: c, now: time.Now}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := l.cache.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(entry)
	if !l.now().Before(e.expiresAt) {
		l.cache.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (l *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	// Копия, чтобы вызывающий код не изменил сохранённое значение.
	stored := append([]byte(nil), value...)
	l.cache.Add(key, entry{value: stored, expiresAt: l.now().Add(ttl)})
	return true
}

func (l *LRU) Invalidate(_ context.Context, key string) bool {
	l.cache.Remove(key)
	return true
}

// Len возвращает число записей (включая истёкшие, но не вытесненные).
func (l *LRU) Len() int {
	return l.cache.Len()
}
