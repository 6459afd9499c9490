// Package common содержит общие утилиты, используемые во всём проекте:
// работа с часовым поясом приложения, реферальные коды, форматирование чисел.
package common

import (
	"crypto/rand"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// appLocation — часовой пояс, в котором считается "сегодняшняя" дата.
// Устанавливается один раз при старте через SetLocation.
var appLocation = time.UTC

// LoadLocation загружает часовой пояс по имени. Если tzdata недоступна,
// для Europe/Moscow используется фиксированный UTC+3, для остальных — UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	log.WithError(err).WithField("timezone", name).Warn("Не удалось загрузить часовой пояс")
	if name == "Europe/Moscow" {
		return time.FixedZone("MSK", 3*60*60)
	}
	return time.UTC
}

// SetLocation задаёт часовой пояс приложения.
func SetLocation(loc *time.Location) {
	if loc != nil {
		appLocation = loc
	}
}

// Location возвращает часовой пояс приложения.
func Location() *time.Location {
	return appLocation
}

// DateOf возвращает календарную дату момента t в часовом поясе приложения
// (полночь, время обнулено).
func DateOf(t time.Time) time.Time {
	t = t.In(appLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today возвращает сегодняшнюю дату в часовом поясе приложения.
func Today() time.Time {
	return DateOf(time.Now())
}

// referralAlphabet — без похожих символов (0/O, 1/I/L).
const referralAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// ReferralCodeLength — длина реферального кода.
const ReferralCodeLength = 8

// GenerateReferralCode создаёт случайный реферальный код.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, ReferralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации реферального кода: %w", err)
	}
	for i, b := range buf {
		buf[i] = referralAlphabet[int(b)%len(referralAlphabet)]
	}
	return string(buf), nil
}

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s %03d", FormatNumber(n/1000), n%1000)
}
