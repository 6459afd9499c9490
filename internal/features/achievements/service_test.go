package achievements_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/memory"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/notify"
	"serotonyl.ru/gaqt-backend/internal/telegram/notify/mock"
)

func setup(t *testing.T, notifier notify.Notifier) (*achievements.Service, *memory.Store, *users.User) {
	t.Helper()
	store := memory.New()
	u, _, err := store.UpsertUser(context.Background(), users.Profile{TelegramID: 55, FirstName: "Ivan"}, "ACHIEVE2", 0)
	require.NoError(t, err)
	return achievements.NewService(store, notifier), store, u
}

func TestAward_OnceWithBonus(t *testing.T) {
	svc, store, u := setup(t, nil)
	ctx := context.Background()

	a, user, err := svc.Award(ctx, u.ID, achievements.KindFirstQuest, "", "")
	require.NoError(t, err)
	assert.Equal(t, achievements.KindFirstQuest, a.Kind)
	assert.Equal(t, "First Steps", a.Name)
	assert.Equal(t, "🎯", a.Icon)
	assert.False(t, a.EarnedAt.IsZero())
	assert.Equal(t, int64(500), user.Points)

	_, _, err = svc.Award(ctx, u.ID, achievements.KindFirstQuest, "", "")
	assert.ErrorIs(t, err, common.ErrAchievementEarned)

	got, err := store.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Points, "бонус начисляется один раз")
}

func TestGrant_AlreadyEarnedIsNotError(t *testing.T) {
	svc, _, u := setup(t, nil)
	ctx := context.Background()

	user, err := svc.Grant(ctx, u.ID, achievements.KindTop10)
	require.NoError(t, err)
	require.NotNil(t, user)

	user, err = svc.Grant(ctx, u.ID, achievements.KindTop10)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestAward_CustomAndUnknown(t *testing.T) {
	svc, _, u := setup(t, nil)
	ctx := context.Background()

	_, _, err := svc.Award(ctx, u.ID, "speedrunner", "", "")
	assert.ErrorIs(t, err, common.ErrUnknownAchievement, "вне каталога нужно имя")

	_, _, err = svc.Award(ctx, u.ID, "  ", "Name", "")
	assert.ErrorIs(t, err, common.ErrUnknownAchievement)

	a, _, err := svc.Award(ctx, u.ID, "speedrunner", "Speedrunner", "")
	require.NoError(t, err)
	assert.Equal(t, "Speedrunner", a.Name)
	assert.Equal(t, "🏆", a.Icon)

	a, _, err = svc.Award(ctx, u.ID, achievements.KindWalletConnected, "Custom name", "🚀")
	require.NoError(t, err)
	assert.Equal(t, "Custom name", a.Name)
	assert.Equal(t, "🚀", a.Icon)
}

func TestAward_FieldLengths(t *testing.T) {
	svc, store, u := setup(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		kind    string
		title   string
		icon    string
		wantErr error
	}{
		{name: "kind too long", kind: strings.Repeat("k", 65), title: "Name", wantErr: common.ErrUnknownAchievement},
		{name: "name too long", kind: "marathon", title: strings.Repeat("я", 256), wantErr: common.ErrInvalidAchievement},
		{name: "icon too long", kind: "marathon", title: "Marathon", icon: strings.Repeat("🔥", 17), wantErr: common.ErrInvalidAchievement},
		{name: "limits in characters", kind: "marathon", title: strings.Repeat("я", 255), icon: strings.Repeat("🔥", 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Award(ctx, u.ID, tt.kind, tt.title, tt.icon)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, common.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}

	got, err := store.UserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Points, "отклонённые запросы не начисляют бонус")
}

func TestAward_UnknownUser(t *testing.T) {
	svc, _, _ := setup(t, nil)

	_, _, err := svc.Award(context.Background(), uuid.New(), achievements.KindFirstQuest, "", "")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestAward_Notifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)
	svc, _, u := setup(t, notifier)

	notifier.EXPECT().
		Notify(gomock.Any(), int64(55), notify.AchievementText("💎", "Web3 Pioneer", 500)).
		Times(1)

	_, _, err := svc.Award(context.Background(), u.ID, achievements.KindWalletConnected, "", "")
	require.NoError(t, err)

	_, _, err = svc.Award(context.Background(), u.ID, achievements.KindWalletConnected, "", "")
	assert.ErrorIs(t, err, common.ErrAchievementEarned, "повторная выдача без уведомления")
}

func TestList(t *testing.T) {
	svc, _, u := setup(t, nil)
	ctx := context.Background()

	list, err := svc.List(ctx, u.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = svc.Grant(ctx, u.ID, achievements.KindFirstQuest)
	require.NoError(t, err)
	_, err = svc.Grant(ctx, u.ID, achievements.KindDailyStreak)
	require.NoError(t, err)

	list, err = svc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, achievements.KindDailyStreak, list[0].Kind, "новые первыми")
	assert.Equal(t, achievements.KindFirstQuest, list[1].Kind)
}

func TestCatalog(t *testing.T) {
	catalog := achievements.Catalog()
	require.Len(t, catalog, 5)

	def, ok := achievements.Lookup(achievements.KindReferralMaster)
	require.True(t, ok)
	assert.Equal(t, "Social Butterfly", def.Name)

	_, ok = achievements.Lookup("nope")
	assert.False(t, ok)
}
