package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1 000"},
		{2350, "2 350"},
		{1000005, "1 000 005"},
		{-12500, "-12 500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatNumber(tt.in))
	}
}

func TestDateOf_UsesAppLocation(t *testing.T) {
	prev := Location()
	t.Cleanup(func() { SetLocation(prev) })

	SetLocation(time.FixedZone("MSK", 3*60*60))
	// 22:30 UTC — в Москве уже следующий день
	got := DateOf(time.Date(2026, 6, 1, 22, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), got)

	SetLocation(nil)
	assert.Equal(t, "MSK", Location().String(), "nil не меняет пояс")
}

func TestLoadLocation_Fallback(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation("Nowhere/Unknown"))
}

func TestGenerateReferralCode(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 200; i++ {
		code, err := GenerateReferralCode()
		require.NoError(t, err)
		require.Len(t, code, ReferralCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(referralAlphabet, r), "символ %q вне алфавита", r)
		}
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 190, "коды должны быть случайными")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrWrongPassword, http.StatusUnauthorized},
		{ErrTooManyAttempts, http.StatusTooManyRequests},
		{ErrAdminDisabled, http.StatusForbidden},
		{ErrQuestNotFound, http.StatusNotFound},
		{ErrQuestAlreadyCompleted, http.StatusConflict},
		{ErrSelfReferral, http.StatusBadRequest},
		{fmt.Errorf("обёртка: %w", ErrAlreadyReferred), http.StatusConflict},
		{Storage("op", errors.New("connection refused")), http.StatusServiceUnavailable},
		{errors.New("что-то ещё"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestStorage(t *testing.T) {
	assert.NoError(t, Storage("op", nil))
	assert.Equal(t, ErrUserNotFound, Storage("op", ErrUserNotFound), "доменные ошибки не оборачиваются")

	err := Storage("загрузка пользователя", pgx.ErrNoRows)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.Contains(t, err.Error(), "загрузка пользователя")
}
