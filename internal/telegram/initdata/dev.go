package initdata

import (
	"strconv"
	"time"
)

// DevValidator принимает initData без проверки подписи и свежести.
// Включается только через AUTH_DEV_MODE при пустом TELEGRAM_BOT_TOKEN
// (см. config.Validate), выбор делается один раз при старте.
type DevValidator struct {
	now func() time.Time
}

// NewDevValidator создаёт валидатор для локальной разработки.
func NewDevValidator() *DevValidator {
	return &DevValidator{now: time.Now}
}

// Verify разбирает user и необязательные auth_date/start_param.
// Отсутствующий hash и устаревший auth_date не являются ошибкой.
func (v *DevValidator) Verify(initData string) (*Identity, error) {
	pairs, err := parse(initData)
	if err != nil {
		return nil, reject(ErrMalformed, err)
	}

	rawUser, ok := lookup(pairs, "user")
	if !ok || rawUser == "" {
		return nil, reject(ErrMissingUser, nil)
	}
	identity, err := parseUser(rawUser)
	if err != nil {
		return nil, reject(err, nil)
	}

	identity.AuthDate = v.now()
	if rawDate, ok := lookup(pairs, "auth_date"); ok {
		if unix, err := strconv.ParseInt(rawDate, 10, 64); err == nil {
			identity.AuthDate = time.Unix(unix, 0)
		}
	}
	identity.Hash, _ = lookup(pairs, "hash")
	identity.StartParam, _ = lookup(pairs, "start_param")
	return identity, nil
}
