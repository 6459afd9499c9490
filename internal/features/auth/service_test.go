package auth_test

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/gaqt-backend/internal/cache"
	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/memory"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/auth"
	"serotonyl.ru/gaqt-backend/internal/features/referrals"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/initdata"
)

const botToken = "7000000000:AAFakeTokenForTests"

// signedInitData собирает initData так, как её подписывает Telegram.
func signedInitData(tg int64, startParam string) string {
	fields := map[string]string{
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      fmt.Sprintf(`{"id":%d,"first_name":"Ivan","username":"ivan%d"}`, tg, tg),
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
	}
	if startParam != "" {
		fields["start_param"] = startParam
	}

	lines := make([]string, 0, len(fields))
	values := url.Values{}
	for k, v := range fields {
		lines = append(lines, k+"="+v)
		values.Set(k, v)
	}
	sort.Strings(lines)
	values.Set("hash", initdata.Sign(initdata.SecretKey(botToken), strings.Join(lines, "\n")))
	return values.Encode()
}

type env struct {
	svc   *auth.Service
	store *memory.Store
}

func newEnv() *env {
	store := memory.New()
	ach := achievements.NewService(store, nil)
	userService := users.NewService(store, cache.NewNoop(), ach, 0)
	referralService := referrals.NewService(store, cache.NewNoop(), ach, nil)
	return &env{
		svc:   auth.NewService(initdata.NewValidator(botToken, time.Hour), userService, referralService),
		store: store,
	}
}

func TestInit_CreatesUserOnce(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	res, err := e.svc.Init(ctx, signedInitData(42, ""), "")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.ReferralBonus)
	assert.Equal(t, int64(42), res.User.TelegramID)
	assert.Equal(t, "ivan42", res.User.Username)

	res, err = e.svc.Init(ctx, signedInitData(42, ""), "")
	require.NoError(t, err)
	assert.False(t, res.Created)
}

func TestInit_InvalidInitData(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	tampered := strings.Replace(signedInitData(42, ""), "Ivan", "Ivan2", 1)
	_, err := e.svc.Init(ctx, tampered, "")
	assert.ErrorIs(t, err, common.ErrAuthInvalid)

	_, err = e.svc.Init(ctx, "", "")
	assert.ErrorIs(t, err, common.ErrAuthInvalid)

	_, err = e.store.UserByTelegramID(ctx, 42)
	assert.ErrorIs(t, err, common.ErrUserNotFound, "пользователь не создан")
}

func TestInit_ReferralFromStartParam(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	inviter, err := e.svc.Init(ctx, signedInitData(1, ""), "")
	require.NoError(t, err)

	res, err := e.svc.Init(ctx, signedInitData(2, strings.ToLower(inviter.User.ReferralCode)), "")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.True(t, res.ReferralBonus)
	assert.Equal(t, int64(1000), res.User.Points)
	assert.Equal(t, 100, res.User.Energy)

	got, err := e.store.UserByID(ctx, inviter.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReferralCount)
}

func TestInit_BodyCodeOverridesStartParam(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	first, err := e.svc.Init(ctx, signedInitData(1, ""), "")
	require.NoError(t, err)
	second, err := e.svc.Init(ctx, signedInitData(2, ""), "")
	require.NoError(t, err)

	res, err := e.svc.Init(ctx, signedInitData(3, first.User.ReferralCode), second.User.ReferralCode)
	require.NoError(t, err)
	assert.True(t, res.ReferralBonus)

	got, err := e.store.UserByID(ctx, second.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ReferralCount)
	got, err = e.store.UserByID(ctx, first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReferralCount)
}

func TestInit_ReferralOnlyForNewUsers(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	inviter, err := e.svc.Init(ctx, signedInitData(1, ""), "")
	require.NoError(t, err)
	_, err = e.svc.Init(ctx, signedInitData(2, ""), "")
	require.NoError(t, err)

	res, err := e.svc.Init(ctx, signedInitData(2, inviter.User.ReferralCode), "")
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.ReferralBonus)
	assert.Equal(t, int64(0), res.User.Points)
}

func TestInit_BadReferralDoesNotBlockLogin(t *testing.T) {
	e := newEnv()

	res, err := e.svc.Init(context.Background(), signedInitData(5, "NOSUCHCODE"), "")
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.ReferralBonus)
	assert.Equal(t, int64(0), res.User.Points)
}
