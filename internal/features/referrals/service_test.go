package referrals_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"serotonyl.ru/gaqt-backend/internal/cache"
	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/memory"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/referrals"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/notify"
	"serotonyl.ru/gaqt-backend/internal/telegram/notify/mock"
)

func newService(t *testing.T, notifier notify.Notifier) (*referrals.Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := referrals.NewService(store, cache.NewNoop(), achievements.NewService(store, nil), notifier)
	return svc, store
}

func addUser(t *testing.T, store *memory.Store, tg int64, code string) *users.User {
	t.Helper()
	u, _, err := store.UpsertUser(context.Background(), users.Profile{TelegramID: tg, FirstName: "User", Username: "user" + code}, code, 0)
	require.NoError(t, err)
	return u
}

func TestApply_CreditsBothUsers(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	referrer := addUser(t, store, 1, "ALICE234")
	referred := addUser(t, store, 2, "BOBBY234")

	res, err := svc.Apply(ctx, " alice234 ", referred.ID)
	require.NoError(t, err)
	assert.Equal(t, referrer.ID, res.Referral.ReferrerID)
	assert.Equal(t, referred.ID, res.Referral.ReferredID)
	assert.Equal(t, "ALICE234", res.Referral.ReferralCode)
	assert.True(t, res.Referral.RewardClaimed)

	assert.Equal(t, int64(1000), res.Referred.Points)
	assert.Equal(t, 100, res.Referred.Energy)
	assert.Equal(t, int64(1000), res.Referrer.Points)
	assert.Equal(t, 100, res.Referrer.Energy)
	assert.Equal(t, 1, res.Referrer.ReferralCount)
}

func TestApply_SingleUse(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	addUser(t, store, 1, "ALICE234")
	addUser(t, store, 3, "CAROL234")
	referred := addUser(t, store, 2, "BOBBY234")

	_, err := svc.Apply(ctx, "ALICE234", referred.ID)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, "ALICE234", referred.ID)
	assert.ErrorIs(t, err, common.ErrAlreadyReferred)
	_, err = svc.Apply(ctx, "CAROL234", referred.ID)
	assert.ErrorIs(t, err, common.ErrAlreadyReferred, "приглашённым можно стать только один раз")

	u, err := store.UserByID(ctx, referred.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), u.Points)
}

func TestApply_Rejected(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	self := addUser(t, store, 1, "SELFCODE")

	tests := []struct {
		name string
		code string
		want error
	}{
		{"свой код", "SELFCODE", common.ErrSelfReferral},
		{"неизвестный код", "NOPE2345", common.ErrReferralCodeNotFound},
		{"пустой код", "   ", common.ErrReferralCodeNotFound},
		{"слишком длинный код", strings.Repeat("A", 40), common.ErrReferralCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Apply(ctx, tt.code, self.ID)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	u, err := store.UserByID(ctx, self.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), u.Points)
}

func TestApply_ReferralMaster(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	referrer := addUser(t, store, 1, "MASTER23")

	var last *referrals.Result
	for i := 0; i < achievements.ReferralMasterThreshold; i++ {
		friend := addUser(t, store, int64(10+i), "FRIEND2"+string(rune('A'+i)))
		res, err := svc.Apply(ctx, "MASTER23", friend.ID)
		require.NoError(t, err)
		last = res
	}

	// 5 × 1000 за приглашённых + 500 за достижение
	assert.Equal(t, int64(5500), last.Referrer.Points)
	assert.Equal(t, achievements.ReferralMasterThreshold, last.Referrer.ReferralCount)

	list, err := store.AchievementsOf(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, achievements.KindReferralMaster, list[0].Kind)
}

func TestApply_NotifiesReferrer(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := mock.NewMockNotifier(ctrl)

	svc, store := newService(t, notifier)
	addUser(t, store, 77, "ALICE234")
	referred, _, err := store.UpsertUser(context.Background(), users.Profile{TelegramID: 2, FirstName: "Bob", Username: "bob"}, "BOBBY234", 0)
	require.NoError(t, err)

	notifier.EXPECT().
		Notify(gomock.Any(), int64(77), notify.ReferralText("@bob", 1000, 100)).
		Times(1)

	_, err = svc.Apply(context.Background(), "ALICE234", referred.ID)
	require.NoError(t, err)
}

func TestApply_ConcurrentCodes(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	codes := []string{"FIRST234", "SECND234", "THIRD234", "FORTH234"}
	for i, code := range codes {
		addUser(t, store, int64(i+1), code)
	}
	referred := addUser(t, store, 100, "NEWBIE23")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, code := range codes {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			_, err := svc.Apply(ctx, code, referred.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			assert.ErrorIs(t, err, common.ErrAlreadyReferred)
		}(code)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	u, err := store.UserByID(ctx, referred.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), u.Points)
}

func TestList(t *testing.T) {
	svc, store := newService(t, nil)
	ctx := context.Background()
	referrer := addUser(t, store, 1, "ALICE234")

	list, err := svc.List(ctx, referrer.ID)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	first := addUser(t, store, 2, "BOBBY234")
	second := addUser(t, store, 3, "CAROL234")
	_, err = svc.Apply(ctx, "ALICE234", first.ID)
	require.NoError(t, err)
	_, err = svc.Apply(ctx, "ALICE234", second.ID)
	require.NoError(t, err)

	list, err = svc.List(ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ReferredID, "новые первыми")
	assert.Equal(t, first.ID, list[1].ReferredID)
	assert.Equal(t, "userCAROL234", list[0].Username)
	assert.Equal(t, int64(1000), list[0].Points)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC", referrals.NormalizeCode("  abc\n"))
	assert.Equal(t, "", referrals.NormalizeCode("   "))
}
