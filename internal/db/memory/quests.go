package memory

import (
	"context"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/quests"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// PutQuest добавляет или заменяет квест каталога. Пустой ID генерируется.
func (s *Store) PutQuest(q quests.Quest) *quests.Quest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneQuest(s.putQuestLocked(q))
}

func (s *Store) putQuestLocked(q quests.Quest) *quests.Quest {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = s.now()
	}
	stored := q
	s.quests[q.ID] = &stored
	return &stored
}

// SeedQuests заливает catalog, если каталог пуст.
func (s *Store) SeedQuests(_ context.Context, catalog []quests.Quest) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.quests) > 0 {
		return 0, nil
	}
	for _, q := range catalog {
		q.IsActive = true
		s.putQuestLocked(q)
	}
	return len(catalog), nil
}

// QuestByID возвращает квест каталога.
func (s *Store) QuestByID(_ context.Context, id uuid.UUID) (*quests.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quests[id]
	if !ok {
		return nil, common.ErrQuestNotFound
	}
	return cloneQuest(q), nil
}

// ActiveQuests возвращает активные квесты в порядке показа.
func (s *Store) ActiveQuests(_ context.Context) ([]*quests.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.activeLocked()
	sort.Slice(list, func(i, j int) bool {
		if list[i].OrderIndex != list[j].OrderIndex {
			return list[i].OrderIndex < list[j].OrderIndex
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list, nil
}

// RandomActiveQuests возвращает n случайных активных квестов.
func (s *Store) RandomActiveQuests(_ context.Context, n int) ([]*quests.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.activeLocked()
	rand.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	if len(list) > n {
		list = list[:n]
	}
	return list, nil
}

func (s *Store) activeLocked() []*quests.Quest {
	var list []*quests.Quest
	for _, q := range s.quests {
		if q.IsActive {
			list = append(list, cloneQuest(q))
		}
	}
	return list
}

// UserQuests возвращает квесты пользователя вместе с квестом каталога.
func (s *Store) UserQuests(_ context.Context, userID uuid.UUID) ([]*quests.UserQuest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var list []*quests.UserQuest
	for key, uq := range s.userQuests {
		if key.userID != userID {
			continue
		}
		c := cloneUserQuest(uq)
		if q, ok := s.quests[uq.QuestID]; ok {
			c.Quest = cloneQuest(q)
		}
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Quest.OrderIndex < list[j].Quest.OrderIndex
	})
	return list, nil
}

// StartQuest переводит квест в in_progress из любого состояния,
// не трогая отметку о выданной награде.
func (s *Store) StartQuest(_ context.Context, userID, questID uuid.UUID) (*quests.UserQuest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPairLocked(userID, questID); err != nil {
		return nil, err
	}

	now := s.now()
	key := pairKey{userID: userID, otherID: questID}
	uq, ok := s.userQuests[key]
	if !ok {
		uq = &quests.UserQuest{
			ID:        uuid.New(),
			UserID:    userID,
			QuestID:   questID,
			CreatedAt: now,
		}
		s.userQuests[key] = uq
	}
	uq.Status = quests.StatusInProgress
	uq.StartedAt = timePtr(now)
	return cloneUserQuest(uq), nil
}

// CompleteQuest завершает квест и начисляет награду. Награда выдаётся
// только если её ещё не выдавали.
func (s *Store) CompleteQuest(_ context.Context, c quests.Completion) (*users.User, *quests.UserQuest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPairLocked(c.UserID, c.QuestID); err != nil {
		return nil, nil, err
	}

	now := s.now()
	key := pairKey{userID: c.UserID, otherID: c.QuestID}
	uq, ok := s.userQuests[key]
	if ok && uq.RewardedAt != nil {
		uq.Status = quests.StatusCompleted
		return nil, nil, common.ErrQuestAlreadyCompleted
	}
	if !ok {
		uq = &quests.UserQuest{
			ID:        uuid.New(),
			UserID:    c.UserID,
			QuestID:   c.QuestID,
			StartedAt: timePtr(now),
			CreatedAt: now,
		}
		s.userQuests[key] = uq
	}
	uq.Status = quests.StatusCompleted
	uq.CompletedAt = timePtr(now)
	uq.RewardedAt = timePtr(now)

	u, err := s.creditLocked(c.UserID, c.Credit)
	if err != nil {
		return nil, nil, err
	}

	if c.DailyDate != nil {
		done := completionKey{userID: c.UserID, questID: c.QuestID, date: dateKey(*c.DailyDate)}
		if _, exists := s.dailyDone[done]; !exists {
			s.dailyDone[done] = *c.DailyDate
		}
	}
	return cloneUser(u), cloneUserQuest(uq), nil
}

func (s *Store) checkPairLocked(userID, questID uuid.UUID) error {
	if _, err := s.userLocked(userID); err != nil {
		return err
	}
	if _, ok := s.quests[questID]; !ok {
		return common.ErrQuestNotFound
	}
	return nil
}

// DailyQuests возвращает активные квесты дня на дату.
func (s *Store) DailyQuests(_ context.Context, date time.Time) ([]*quests.DailyQuest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := dateKey(date)
	var list []*quests.DailyQuest
	for key, dq := range s.daily {
		if key.date != day || !dq.IsActive {
			continue
		}
		list = append(list, s.dailyWithQuestLocked(dq))
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Quest.OrderIndex < list[j].Quest.OrderIndex
	})
	return list, nil
}

// DailyQuestFor возвращает активный квест дня или nil.
func (s *Store) DailyQuestFor(_ context.Context, questID uuid.UUID, date time.Time) (*quests.DailyQuest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dq, ok := s.daily[dailyKey{questID: questID, date: dateKey(date)}]
	if !ok || !dq.IsActive {
		return nil, nil
	}
	return s.dailyWithQuestLocked(dq), nil
}

// UpsertDailyQuest делает квест ежедневным на дату.
func (s *Store) UpsertDailyQuest(_ context.Context, questID uuid.UUID, date time.Time, multiplier decimal.Decimal) (*quests.DailyQuest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quests[questID]; !ok {
		return nil, common.ErrQuestNotFound
	}

	key := dailyKey{questID: questID, date: dateKey(date)}
	dq, ok := s.daily[key]
	if !ok {
		dq = &quests.DailyQuest{ID: uuid.New(), QuestID: questID, Date: date}
		s.daily[key] = dq
	}
	dq.Multiplier = multiplier
	dq.IsActive = true
	return s.dailyWithQuestLocked(dq), nil
}

func (s *Store) dailyWithQuestLocked(dq *quests.DailyQuest) *quests.DailyQuest {
	c := *dq
	if q, ok := s.quests[dq.QuestID]; ok {
		c.Quest = cloneQuest(q)
	}
	return &c
}

// DailyCompletionDates возвращает различные даты выполненных квестов дня, новые первыми.
func (s *Store) DailyCompletionDates(_ context.Context, userID uuid.UUID, limit int) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]time.Time)
	for key, date := range s.dailyDone {
		if key.userID == userID {
			seen[key.date] = date
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}
