// Package initdata проверяет initData, которую Telegram Web App передаёт
// при открытии мини-приложения.
//
// Алгоритм проверки (документация Telegram, раздел "Validating data"):
//  1. initData разбирается как набор пар key=value, разделённых '&'.
//  2. Пара hash извлекается; остальные пары форматируются как key=value,
//     сортируются лексикографически и склеиваются через '\n'.
//  3. secret = HMAC_SHA256(key = botToken, msg = "WebAppData").
//  4. hash должен совпасть с hex(HMAC_SHA256(key = secret, msg = checkString)).
//  5. user — JSON с целочисленным id, auth_date — не старше 24 часов.
package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// DefaultMaxAge — сколько живёт initData после auth_date.
const DefaultMaxAge = 24 * time.Hour

// webAppDataKey — константа из протокола Telegram для вывода секрета.
const webAppDataKey = "WebAppData"

// Причины отказа. Все оборачивают common.ErrAuthInvalid, наружу
// отдаётся только общий вид, причина пишется в лог.
var (
	ErrMalformed         = fmt.Errorf("%w: initData не разбирается", common.ErrAuthInvalid)
	ErrMissingHash       = fmt.Errorf("%w: нет hash", common.ErrAuthInvalid)
	ErrSignatureMismatch = fmt.Errorf("%w: подпись не совпадает", common.ErrAuthInvalid)
	ErrMissingUser       = fmt.Errorf("%w: нет user", common.ErrAuthInvalid)
	ErrMalformedUser     = fmt.Errorf("%w: user не разбирается", common.ErrAuthInvalid)
	ErrExpired           = fmt.Errorf("%w: auth_date устарел", common.ErrAuthInvalid)
)

// Identity — проверенная личность пользователя Telegram.
type Identity struct {
	TelegramID int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name,omitempty"`
	Username   string    `json:"username,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	AuthDate   time.Time `json:"auth_date"`
	Hash       string    `json:"hash,omitempty"`
	StartParam string    `json:"start_param,omitempty"` // Реферальный код из ссылки t.me/bot?startapp=CODE
}

// Verifier превращает initData в проверенную личность.
type Verifier interface {
	Verify(initData string) (*Identity, error)
}

// webAppUser — поле user из initData.
type webAppUser struct {
	ID        json.RawMessage `json:"id"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Username  string          `json:"username"`
	PhotoURL  string          `json:"photo_url"`
}

// pair — одна пара key=value в исходном порядке.
type pair struct {
	key   string
	value string
}

// Validator проверяет подпись и свежесть initData.
type Validator struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewValidator создаёт валидатор для токена бота. Секрет выводится
// один раз, токен в структуре не хранится.
func NewValidator(botToken string, maxAge time.Duration) *Validator {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Validator{
		secret: SecretKey(botToken),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// WithClock подменяет часы (для тестов границы свежести).
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// SecretKey вычисляет HMAC_SHA256(key = botToken, msg = "WebAppData").
func SecretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(botToken))
	mac.Write([]byte(webAppDataKey))
	return mac.Sum(nil)
}

// Sign вычисляет hex-подпись строки проверки данным секретом.
func Sign(secret []byte, data string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify проверяет initData целиком. Любой отказ оборачивает common.ErrAuthInvalid.
func (v *Validator) Verify(initData string) (*Identity, error) {
	pairs, err := parse(initData)
	if err != nil {
		return nil, reject(ErrMalformed, err)
	}

	hash, rest, ok := extractHash(pairs)
	if !ok {
		return nil, reject(ErrMissingHash, nil)
	}

	expected := Sign(v.secret, checkString(rest))
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, reject(ErrSignatureMismatch, nil)
	}

	identity, err := identityFrom(rest)
	if err != nil {
		return nil, reject(err, nil)
	}

	// auth_date в целых секундах, поэтому и возраст считаем в секундах.
	// Ровно maxAge ещё допустимо, дальше — отказ.
	if v.now().Unix()-identity.AuthDate.Unix() > int64(v.maxAge/time.Second) {
		return nil, reject(ErrExpired, nil)
	}

	identity.Hash = hash
	return identity, nil
}

// checkString строит строку проверки: key=value, отсортированные
// лексикографически и склеенные через '\n'.
func checkString(pairs []pair) string {
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, p.key+"="+p.value)
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

// parse разбирает initData в пары с раскодированными ключами и значениями.
// Пустые сегменты пропускаются, пара без '=' получает пустое значение.
func parse(initData string) ([]pair, error) {
	initData = strings.TrimSpace(initData)
	if initData == "" {
		return nil, errors.New("пустая строка")
	}

	var pairs []pair
	for _, segment := range strings.Split(initData, "&") {
		if segment == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(segment, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("ключ %q: %w", rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("значение %q: %w", key, err)
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	return pairs, nil
}

// extractHash возвращает первое значение hash и пары без всех hash.
func extractHash(pairs []pair) (string, []pair, bool) {
	var (
		hash  string
		found bool
		rest  = make([]pair, 0, len(pairs))
	)
	for _, p := range pairs {
		if p.key == "hash" {
			if !found {
				hash, found = p.value, true
			}
			continue
		}
		rest = append(rest, p)
	}
	return hash, rest, found && hash != ""
}

// lookup возвращает значение первой пары с ключом key.
func lookup(pairs []pair, key string) (string, bool) {
	for _, p := range pairs {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// identityFrom извлекает user, auth_date и start_param.
func identityFrom(pairs []pair) (*Identity, error) {
	rawUser, ok := lookup(pairs, "user")
	if !ok || rawUser == "" {
		return nil, ErrMissingUser
	}

	identity, err := parseUser(rawUser)
	if err != nil {
		return nil, err
	}

	rawDate, ok := lookup(pairs, "auth_date")
	if !ok {
		return nil, ErrMalformed
	}
	unix, err := strconv.ParseInt(rawDate, 10, 64)
	if err != nil {
		return nil, ErrMalformed
	}
	identity.AuthDate = time.Unix(unix, 0)

	if startParam, ok := lookup(pairs, "start_param"); ok {
		identity.StartParam = startParam
	}
	return identity, nil
}

// parseUser разбирает JSON пользователя. id обязан быть целым и ненулевым.
func parseUser(raw string) (*Identity, error) {
	var u webAppUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, ErrMalformedUser
	}
	// Строка, дробь и null в id не принимаются.
	id, err := strconv.ParseInt(string(u.ID), 10, 64)
	if err != nil || id == 0 {
		return nil, ErrMalformedUser
	}

	return &Identity{
		TelegramID: id,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
		PhotoURL:   u.PhotoURL,
	}, nil
}

// reject пишет причину в лог и возвращает вид ошибки.
func reject(reason error, cause error) error {
	entry := log.WithField("reason", reason.Error())
	if cause != nil {
		entry = entry.WithError(cause)
	}
	entry.Debug("initData отклонена")
	return reason
}
