// Package quests — service.go: правила прохождения квестов.
//
// Награда за квест выдаётся не больше одного раза на пару (пользователь, квест).
// Повторный старт завершённого квеста разрешён и возвращает его в
// in_progress, но повторное завершение отвечает ErrQuestAlreadyCompleted.
package quests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/cache"
	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// DefaultDailyMultiplier — множитель квеста дня по умолчанию.
var DefaultDailyMultiplier = decimal.NewFromInt(2)

// Store — хранилище квестов.
type Store interface {
	QuestByID(ctx context.Context, id uuid.UUID) (*Quest, error)
	ActiveQuests(ctx context.Context) ([]*Quest, error)
	RandomActiveQuests(ctx context.Context, n int) ([]*Quest, error)
	UserQuests(ctx context.Context, userID uuid.UUID) ([]*UserQuest, error)
	StartQuest(ctx context.Context, userID, questID uuid.UUID) (*UserQuest, error)
	CompleteQuest(ctx context.Context, c Completion) (*users.User, *UserQuest, error)
	DailyQuests(ctx context.Context, date time.Time) ([]*DailyQuest, error)
	DailyQuestFor(ctx context.Context, questID uuid.UUID, date time.Time) (*DailyQuest, error)
	UpsertDailyQuest(ctx context.Context, questID uuid.UUID, date time.Time, multiplier decimal.Decimal) (*DailyQuest, error)
	DailyCompletionDates(ctx context.Context, userID uuid.UUID, limit int) ([]time.Time, error)
}

// Service — бизнес-логика квестов.
type Service struct {
	store   Store
	cache   cache.Cache
	granter users.Granter
	now     func() time.Time
}

// NewService создаёт сервис квестов.
func NewService(store Store, c cache.Cache, granter users.Granter) *Service {
	return &Service{
		store:   store,
		cache:   c,
		granter: granter,
		now:     time.Now,
	}
}

// WithClock подменяет часы.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ListActive возвращает активный каталог. cached == true — ответ из кеша.
func (s *Service) ListActive(ctx context.Context) ([]*Quest, bool, error) {
	if list, ok := cache.GetJSON[[]*Quest](ctx, s.cache, cache.KeyActiveQuests); ok {
		return list, true, nil
	}

	list, err := s.store.ActiveQuests(ctx)
	if err != nil {
		return nil, false, err
	}
	if list == nil {
		list = []*Quest{}
	}
	cache.SetJSON(ctx, s.cache, cache.KeyActiveQuests, list, cache.TTLActiveQuests)
	return list, false, nil
}

// ListMine возвращает квесты пользователя.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]*UserQuest, error) {
	list, err := s.store.UserQuests(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*UserQuest{}
	}
	return list, nil
}

// Start переводит квест в in_progress. Неактивный квест считается ненайденным.
func (s *Service) Start(ctx context.Context, userID, questID uuid.UUID) (*UserQuest, error) {
	q, err := s.store.QuestByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if !q.IsActive {
		return nil, common.ErrQuestNotFound
	}
	return s.store.StartQuest(ctx, userID, questID)
}

// Complete завершает квест и начисляет награду. Если квест сегодня
// ежедневный, очки умножаются на его множитель (энергия — нет).
func (s *Service) Complete(ctx context.Context, userID, questID uuid.UUID) (*CompletionResult, error) {
	q, err := s.store.QuestByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if !q.IsActive {
		return nil, common.ErrQuestNotFound
	}

	today := common.DateOf(s.now())
	completion := Completion{
		UserID:  userID,
		QuestID: questID,
		Credit:  q.Reward(),
	}

	daily, err := s.store.DailyQuestFor(ctx, questID, today)
	if err != nil {
		return nil, err
	}
	if daily != nil {
		completion.Credit.Points = progress.ApplyDailyMultiplier(q.RewardPoints, daily.Multiplier)
		completion.DailyDate = &today
	}

	user, uq, err := s.store.CompleteQuest(ctx, completion)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"quest_id": questID,
		"points":   completion.Credit.Points,
		"energy":   completion.Credit.Energy,
		"daily":    daily != nil,
	}).Info("Квест завершён")

	result := &CompletionResult{User: user, UserQuest: uq, Reward: completion.Credit}
	if daily != nil {
		m := daily.Multiplier
		result.Multiplier = &m
	}

	s.grant(ctx, result, achievements.KindFirstQuest)
	if daily != nil && s.hasDailyStreak(ctx, userID, today) {
		s.grant(ctx, result, achievements.KindDailyStreak)
	}

	s.cache.Invalidate(ctx, cache.UserProfileKey(user.TelegramID))
	return result, nil
}

// grant выдаёт достижение и подменяет пользователя в результате.
func (s *Service) grant(ctx context.Context, result *CompletionResult, kind string) {
	if s.granter == nil {
		return
	}
	u, err := s.granter.Grant(ctx, result.User.ID, kind)
	if err != nil {
		log.WithError(err).WithField("achievement", kind).Warn("Не удалось выдать достижение")
		return
	}
	if u != nil {
		result.User = u
	}
}

// hasDailyStreak проверяет, что квесты дня выполнены DailyStreakDays дней подряд,
// включая today.
func (s *Service) hasDailyStreak(ctx context.Context, userID uuid.UUID, today time.Time) bool {
	dates, err := s.store.DailyCompletionDates(ctx, userID, achievements.DailyStreakDays)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось проверить серию квестов дня")
		return false
	}
	return ConsecutiveDays(dates, today) >= achievements.DailyStreakDays
}

// ConsecutiveDays считает дни подряд, заканчивая today. dates — различные
// календарные даты по убыванию.
func ConsecutiveDays(dates []time.Time, today time.Time) int {
	want := calendarDay(today)
	streak := 0
	for _, d := range dates {
		if !calendarDay(d).Equal(want) {
			break
		}
		streak++
		want = want.AddDate(0, 0, -1)
	}
	return streak
}

// calendarDay отбрасывает время, оставляя дату как есть.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Daily возвращает квесты дня. cached == true — ответ из кеша.
func (s *Service) Daily(ctx context.Context) ([]*DailyQuest, bool, error) {
	today := common.DateOf(s.now())
	key := cache.DailyQuestsKey(today)
	if list, ok := cache.GetJSON[[]*DailyQuest](ctx, s.cache, key); ok {
		return list, true, nil
	}

	list, err := s.store.DailyQuests(ctx, today)
	if err != nil {
		return nil, false, err
	}
	if list == nil {
		list = []*DailyQuest{}
	}
	cache.SetJSON(ctx, s.cache, key, list, cache.TTLDailyQuests)
	return list, false, nil
}

// CreateDaily делает квест ежедневным на сегодня с множителем multiplier.
func (s *Service) CreateDaily(ctx context.Context, questID uuid.UUID, multiplier decimal.Decimal) (*DailyQuest, error) {
	if multiplier.LessThan(decimal.NewFromInt(1)) {
		return nil, common.ErrInvalidMultiplier
	}
	if _, err := s.store.QuestByID(ctx, questID); err != nil {
		return nil, err
	}

	today := common.DateOf(s.now())
	dq, err := s.store.UpsertDailyQuest(ctx, questID, today, multiplier)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.DailyQuestsKey(today))
	return dq, nil
}

// RotateDaily выбирает count случайных активных квестов на сегодня,
// если квестов дня ещё нет. Возвращает число созданных.
func (s *Service) RotateDaily(ctx context.Context, count int, multiplier decimal.Decimal) (int, error) {
	if count <= 0 {
		return 0, nil
	}
	if multiplier.LessThan(decimal.NewFromInt(1)) {
		return 0, common.ErrInvalidMultiplier
	}

	today := common.DateOf(s.now())
	existing, err := s.store.DailyQuests(ctx, today)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	picks, err := s.store.RandomActiveQuests(ctx, count)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, q := range picks {
		if _, err := s.store.UpsertDailyQuest(ctx, q.ID, today, multiplier); err != nil {
			if errors.Is(err, common.ErrStorageUnavailable) {
				return created, err
			}
			log.WithError(err).WithField("quest_id", q.ID).Warn("Не удалось добавить квест дня")
			continue
		}
		created++
	}

	s.cache.Invalidate(ctx, cache.DailyQuestsKey(today))
	log.WithFields(log.Fields{
		"date":  today.Format("2006-01-02"),
		"count": created,
	}).Info("Квесты дня выбраны")
	return created, nil
}
