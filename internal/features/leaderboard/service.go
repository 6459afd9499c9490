package leaderboard

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/cache"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

const (
	// MaxLimit — сколько лидеров хранится в кеше и отдаётся максимум.
	MaxLimit = 100
	// DefaultLimit — размер страницы без параметра limit.
	DefaultLimit = MaxLimit
)

// Store — хранилище для таблицы лидеров.
type Store interface {
	TopUsersByPoints(ctx context.Context, limit int) ([]*users.User, error)
}

// Entry — строка таблицы лидеров. Rank начинается с 1.
type Entry struct {
	Rank int `json:"rank"`
	users.Summary
}

// Service строит таблицу лидеров.
type Service struct {
	store   Store
	cache   cache.Cache
	granter users.Granter
}

// NewService создаёт сервис.
func NewService(store Store, c cache.Cache, granter users.Granter) *Service {
	return &Service{store: store, cache: c, granter: granter}
}

// NormalizeLimit приводит limit к 1..MaxLimit, 0 и меньше — DefaultLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Top возвращает первых limit игроков. Кешируется вся сотня,
// ответ нарезается из неё.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, bool, error) {
	limit = NormalizeLimit(limit)

	list, cached := cache.GetJSON[[]Entry](ctx, s.cache, cache.KeyLeaderboard)
	if !cached {
		top, err := s.store.TopUsersByPoints(ctx, MaxLimit)
		if err != nil {
			return nil, false, err
		}
		list = make([]Entry, 0, len(top))
		for i, u := range top {
			list = append(list, Entry{Rank: i + 1, Summary: u.Summary()})
		}
		cache.SetJSON(ctx, s.cache, cache.KeyLeaderboard, list, cache.TTLLeaderboard)
	}

	if len(list) > limit {
		list = list[:limit]
	}
	return list, cached, nil
}

// AwardTopPlayers выдаёт top_10 первым TopPlayersCount игрокам с ненулевыми
// очками. Возвращает число новых достижений.
func (s *Service) AwardTopPlayers(ctx context.Context) (int, error) {
	if s.granter == nil {
		return 0, nil
	}

	top, err := s.store.TopUsersByPoints(ctx, achievements.TopPlayersCount)
	if err != nil {
		return 0, err
	}

	awarded := 0
	for _, u := range top {
		if u.Points <= 0 {
			break
		}
		granted, err := s.granter.Grant(ctx, u.ID, achievements.KindTop10)
		if err != nil {
			log.WithError(err).WithField("user_id", u.ID).Warn("Не удалось выдать достижение за топ")
			continue
		}
		if granted != nil {
			awarded++
		}
	}

	if awarded > 0 {
		s.cache.Invalidate(ctx, cache.KeyLeaderboard)
		log.WithField("awarded", awarded).Info("Достижения за топ выданы")
	}
	return awarded, nil
}
