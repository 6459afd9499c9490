package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// AwardAchievement выдаёт достижение и бонус. Повторная выдача — (nil, nil, nil).
func (s *Store) AwardAchievement(_ context.Context, a *achievements.UserAchievement, bonus progress.Credit) (*achievements.UserAchievement, *users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.userLocked(a.UserID); err != nil {
		return nil, nil, err
	}

	key := achievementKey{userID: a.UserID, kind: a.Kind}
	if _, exists := s.achievements[key]; exists {
		return nil, nil, nil
	}

	stored := *a
	stored.ID = uuid.New()
	stored.EarnedAt = s.now()
	s.achievements[key] = &achievementRow{a: &stored, seq: s.nextSeq()}

	u, err := s.creditLocked(a.UserID, bonus)
	if err != nil {
		return nil, nil, err
	}

	awarded := stored
	return &awarded, cloneUser(u), nil
}

// AchievementsOf возвращает достижения пользователя, новые первыми.
func (s *Store) AchievementsOf(_ context.Context, userID uuid.UUID) ([]*achievements.UserAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows []*achievementRow
	for key, row := range s.achievements {
		if key.userID == userID {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].a.EarnedAt, rows[j].a.EarnedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return rows[i].seq > rows[j].seq
	})

	list := make([]*achievements.UserAchievement, 0, len(rows))
	for _, row := range rows {
		c := *row.a
		list = append(list, &c)
	}
	return list, nil
}
