package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/gaqt-backend/internal/common"
)

const testToken = "7000000000:AAFakeTokenForTests"

// Подписанная строка, посчитанная вне Go для того же токена.
const fixtureInitData = "query_id=AAHdF6IQAAAAAN0XohDhrOrc" +
	"&user=%7B%22id%22%3A279058397%2C%22first_name%22%3A%22Vladislav%22%2C%22last_name%22%3A%22Kibenko%22%2C%22username%22%3A%22vdkfrost%22%2C%22language_code%22%3A%22ru%22%2C%22is_premium%22%3Atrue%7D" +
	"&auth_date=1700000000&start_param=REF2345" +
	"&hash=19cd405999cdd51eedbeda55066d74bbba3ee3fc7dd84f6c8be602e6f630d2b5"

var fixtureNow = time.Unix(1700000000, 0).Add(time.Hour)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// sign подписывает поля так, как это делает Telegram, без использования
// функций пакета.
func sign(token string, fields map[string]string) string {
	lines := make([]string, 0, len(fields))
	for k, v := range fields {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)

	secretMAC := hmac.New(sha256.New, []byte(token))
	secretMAC.Write([]byte("WebAppData"))
	mac := hmac.New(sha256.New, secretMAC.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}

func encode(fields map[string]string, hash string) string {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	if hash != "" {
		values.Set("hash", hash)
	}
	return values.Encode()
}

func validFields(authDate time.Time) map[string]string {
	return map[string]string{
		"query_id":  "AAHdF6IQAAAAAN0XohDhrOrc",
		"user":      `{"id":42,"first_name":"Ivan","last_name":"Petrov","username":"ivan","photo_url":"https://t.me/i/userpic/320/ivan.jpg"}`,
		"auth_date": strconv.FormatInt(authDate.Unix(), 10),
	}
}

func TestValidator_VerifyFixture(t *testing.T) {
	v := NewValidator(testToken, 0).WithClock(fixedClock(fixtureNow))

	identity, err := v.Verify(fixtureInitData)
	require.NoError(t, err)

	assert.Equal(t, int64(279058397), identity.TelegramID)
	assert.Equal(t, "Vladislav", identity.FirstName)
	assert.Equal(t, "Kibenko", identity.LastName)
	assert.Equal(t, "vdkfrost", identity.Username)
	assert.Equal(t, "REF2345", identity.StartParam)
	assert.Equal(t, time.Unix(1700000000, 0), identity.AuthDate)
	assert.Equal(t, "19cd405999cdd51eedbeda55066d74bbba3ee3fc7dd84f6c8be602e6f630d2b5", identity.Hash)
}

func TestValidator_RoundTrip(t *testing.T) {
	now := time.Unix(1720000000, 0)
	tokens := []string{testToken, "1:a", "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"}

	for _, token := range tokens {
		t.Run(token, func(t *testing.T) {
			fields := validFields(now.Add(-time.Minute))
			initData := encode(fields, sign(token, fields))

			identity, err := NewValidator(token, DefaultMaxAge).WithClock(fixedClock(now)).Verify(initData)
			require.NoError(t, err)
			assert.Equal(t, int64(42), identity.TelegramID)
			assert.Equal(t, "Ivan", identity.FirstName)
			assert.Equal(t, "https://t.me/i/userpic/320/ivan.jpg", identity.PhotoURL)
		})
	}
}

func TestValidator_WrongToken(t *testing.T) {
	v := NewValidator("other-token", 0).WithClock(fixedClock(fixtureNow))

	_, err := v.Verify(fixtureInitData)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.ErrorIs(t, err, common.ErrAuthInvalid)
}

func TestValidator_TamperDetection(t *testing.T) {
	now := time.Unix(1720000000, 0)
	fields := validFields(now.Add(-time.Minute))
	hash := sign(testToken, fields)
	v := NewValidator(testToken, 0).WithClock(fixedClock(now))

	for key, value := range fields {
		for i := range value {
			tampered := make(map[string]string, len(fields))
			for k, val := range fields {
				tampered[k] = val
			}
			tampered[key] = flip(value, i)

			_, err := v.Verify(encode(tampered, hash))
			require.Error(t, err, "%s[%d]", key, i)
			require.True(t, errors.Is(err, common.ErrAuthInvalid), "%s[%d]: %v", key, i, err)
		}
	}

	for i := range hash {
		_, err := v.Verify(encode(fields, flip(hash, i)))
		require.ErrorIs(t, err, ErrSignatureMismatch, "hash[%d]", i)
	}
}

// flip меняет один символ строки на другой.
func flip(s string, i int) string {
	b := []byte(s)
	if b[i] == 'a' {
		b[i] = 'b'
	} else {
		b[i] = 'a'
	}
	return string(b)
}

func TestValidator_FreshnessBoundary(t *testing.T) {
	now := time.Unix(1720000000, 0)
	v := NewValidator(testToken, DefaultMaxAge).WithClock(fixedClock(now))

	tests := []struct {
		name     string
		authDate time.Time
		wantErr  error
	}{
		{name: "exactly 86400 seconds old", authDate: now.Add(-86400 * time.Second)},
		{name: "86401 seconds old", authDate: now.Add(-86401 * time.Second), wantErr: ErrExpired},
		{name: "fresh", authDate: now},
		{name: "from the future", authDate: now.Add(time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := validFields(tt.authDate)
			_, err := v.Verify(encode(fields, sign(testToken, fields)))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidator_FreshnessBoundaryWithSubsecondClock(t *testing.T) {
	base := time.Unix(1720000000, 0)
	v := NewValidator(testToken, DefaultMaxAge).WithClock(fixedClock(base.Add(500 * time.Millisecond)))

	fields := validFields(base.Add(-86400 * time.Second))
	_, err := v.Verify(encode(fields, sign(testToken, fields)))
	assert.NoError(t, err, "доли секунды не делают auth_date устаревшим")

	fields = validFields(base.Add(-86401 * time.Second))
	_, err = v.Verify(encode(fields, sign(testToken, fields)))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestValidator_Rejections(t *testing.T) {
	now := time.Unix(1720000000, 0)
	v := NewValidator(testToken, 0).WithClock(fixedClock(now))
	authDate := strconv.FormatInt(now.Unix(), 10)

	signed := func(fields map[string]string) string {
		return encode(fields, sign(testToken, fields))
	}

	tests := []struct {
		name     string
		initData string
		wantErr  error
	}{
		{name: "empty", initData: "", wantErr: ErrMalformed},
		{name: "bad escape", initData: "user=%ZZ&hash=00", wantErr: ErrMalformed},
		{
			name:     "missing hash",
			initData: encode(validFields(now), ""),
			wantErr:  ErrMissingHash,
		},
		{
			name:     "missing user",
			initData: signed(map[string]string{"auth_date": authDate}),
			wantErr:  ErrMissingUser,
		},
		{
			name:     "user is not json",
			initData: signed(map[string]string{"auth_date": authDate, "user": "{not json"}),
			wantErr:  ErrMalformedUser,
		},
		{
			name:     "user without id",
			initData: signed(map[string]string{"auth_date": authDate, "user": `{"first_name":"Ivan"}`}),
			wantErr:  ErrMalformedUser,
		},
		{
			name:     "string id",
			initData: signed(map[string]string{"auth_date": authDate, "user": `{"id":"42"}`}),
			wantErr:  ErrMalformedUser,
		},
		{
			name:     "fractional id",
			initData: signed(map[string]string{"auth_date": authDate, "user": `{"id":4.2}`}),
			wantErr:  ErrMalformedUser,
		},
		{
			name:     "zero id",
			initData: signed(map[string]string{"auth_date": authDate, "user": `{"id":0}`}),
			wantErr:  ErrMalformedUser,
		},
		{
			name:     "missing auth_date",
			initData: signed(map[string]string{"user": `{"id":42}`}),
			wantErr:  ErrMalformed,
		},
		{
			name:     "auth_date not a number",
			initData: signed(map[string]string{"user": `{"id":42}`, "auth_date": "yesterday"}),
			wantErr:  ErrMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := v.Verify(tt.initData)
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, common.ErrAuthInvalid)
		})
	}
}

func TestValidator_DuplicateHashIgnoredInCheckString(t *testing.T) {
	now := time.Unix(1720000000, 0)
	fields := validFields(now)
	hash := sign(testToken, fields)
	initData := encode(fields, hash) + "&hash=ffff"

	identity, err := NewValidator(testToken, 0).WithClock(fixedClock(now)).Verify(initData)
	require.NoError(t, err)
	assert.Equal(t, hash, identity.Hash)
}

func TestValidator_EmptySegmentsSkipped(t *testing.T) {
	now := time.Unix(1720000000, 0)
	fields := validFields(now)
	initData := "&&" + encode(fields, sign(testToken, fields)) + "&"

	_, err := NewValidator(testToken, 0).WithClock(fixedClock(now)).Verify(initData)
	assert.NoError(t, err)
}

func TestDevValidator(t *testing.T) {
	t.Run("accepts unsigned stale data", func(t *testing.T) {
		initData := encode(map[string]string{
			"user":        `{"id":7,"first_name":"Dev"}`,
			"auth_date":   "1",
			"start_param": "ABCD2345",
		}, "")

		identity, err := NewDevValidator().Verify(initData)
		require.NoError(t, err)
		assert.Equal(t, int64(7), identity.TelegramID)
		assert.Equal(t, "Dev", identity.FirstName)
		assert.Equal(t, "ABCD2345", identity.StartParam)
		assert.Equal(t, time.Unix(1, 0), identity.AuthDate)
	})

	t.Run("still requires user", func(t *testing.T) {
		_, err := NewDevValidator().Verify("auth_date=1")
		assert.ErrorIs(t, err, ErrMissingUser)
	})

	t.Run("still requires integer id", func(t *testing.T) {
		_, err := NewDevValidator().Verify(encode(map[string]string{"user": `{"id":"x"}`}, ""))
		assert.ErrorIs(t, err, ErrMalformedUser)
	})
}
