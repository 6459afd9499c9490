package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/quests"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

func TestUpsertUser_ReferralCodeTaken(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, created, err := s.UpsertUser(ctx, users.Profile{TelegramID: 1}, "SAMECODE", 0)
	require.NoError(t, err)
	require.True(t, created)

	_, _, err = s.UpsertUser(ctx, users.Profile{TelegramID: 2}, "SAMECODE", 0)
	assert.ErrorIs(t, err, users.ErrReferralCodeTaken)

	// существующий пользователь не проверяет код
	_, created, err = s.UpsertUser(ctx, users.Profile{TelegramID: 1}, "SAMECODE", 0)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestUpsertUser_StartEnergyClamped(t *testing.T) {
	s := New()

	u, _, err := s.UpsertUser(context.Background(), users.Profile{TelegramID: 1}, "CODE0001", 5000)
	require.NoError(t, err)
	assert.Equal(t, progress.MaxEnergy, u.Energy)
}

func TestReturnedUsersAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, _, err := s.UpsertUser(ctx, users.Profile{TelegramID: 1}, "CODE0001", 0)
	require.NoError(t, err)
	u.Points = 1_000_000

	got, err := s.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Points)
}

func TestDailyCompletionDates(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, _, err := s.UpsertUser(ctx, users.Profile{TelegramID: 1}, "CODE0001", 0)
	require.NoError(t, err)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		day := base.AddDate(0, 0, i)
		q := s.PutQuest(quests.Quest{Title: "q", IsActive: true})
		_, err := s.UpsertDailyQuest(ctx, q.ID, day, decimal.NewFromInt(2))
		require.NoError(t, err)
		_, _, err = s.CompleteQuest(ctx, quests.Completion{
			UserID:    u.ID,
			QuestID:   q.ID,
			Credit:    progress.Credit{Points: 10},
			DailyDate: &day,
		})
		require.NoError(t, err)
	}

	dates, err := s.DailyCompletionDates(ctx, u.ID, 3)
	require.NoError(t, err)
	require.Len(t, dates, 3)
	assert.Equal(t, base.AddDate(0, 0, 3), dates[0])
	assert.Equal(t, base.AddDate(0, 0, 1), dates[2])
}

func TestUpsertDailyQuest_UnknownQuest(t *testing.T) {
	s := New()
	q := s.PutQuest(quests.Quest{Title: "q", IsActive: true})
	_, err := s.UpsertDailyQuest(context.Background(), q.ID, time.Now(), decimal.NewFromInt(2))
	require.NoError(t, err)

	_, err = s.UpsertDailyQuest(context.Background(), uuid.New(), time.Now(), decimal.NewFromInt(2))
	assert.ErrorIs(t, err, common.ErrQuestNotFound)
}
