// Package users — пользователь мини-приложения и его игровой леджер:
// очки, энергия, уровень, реферальный код, привязанный TON-кошелёк.
package users

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/gaqt-backend/internal/features/progress"
)

// MaxWalletLength — максимальная длина адреса TON-кошелька.
const MaxWalletLength = 128

// ErrReferralCodeTaken — сгенерированный реферальный код уже занят.
// Сервис повторяет создание с новым кодом.
var ErrReferralCodeTaken = errors.New("реферальный код уже занят")

// User — пользователь и его леджер.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	TelegramID    int64     `db:"telegram_id" json:"telegram_id"`
	Username      string    `db:"username" json:"username,omitempty"`
	FirstName     string    `db:"first_name" json:"first_name"`
	LastName      string    `db:"last_name" json:"last_name,omitempty"`
	PhotoURL      string    `db:"photo_url" json:"photo_url,omitempty"`
	TonWallet     *string   `db:"ton_wallet" json:"ton_wallet,omitempty"` // nil — кошелёк не привязан
	Energy        int       `db:"energy" json:"energy"`                   // 0..1000
	Points        int64     `db:"points" json:"points"`
	Level         int       `db:"level" json:"level"` // всегда LevelFor(Points)
	ReferralCode  string    `db:"referral_code" json:"referral_code"`
	ReferralCount int       `db:"referral_count" json:"referral_count"`
	LastSync      time.Time `db:"last_sync" json:"last_sync"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName возвращает имя для показа: @username или имя.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return u.FirstName
}

// Ledger возвращает очки, энергию и уровень.
func (u *User) Ledger() progress.Ledger {
	return progress.Ledger{Points: u.Points, Energy: u.Energy, Level: u.Level}
}

// SetLedger записывает леджер в пользователя.
func (u *User) SetLedger(l progress.Ledger) {
	u.Points = l.Points
	u.Energy = l.Energy
	u.Level = l.Level
}

// Credit начисляет очки и энергию по правилам леджера.
func (u *User) Credit(c progress.Credit) {
	u.SetLedger(u.Ledger().Apply(c))
}

// ApplySync применяет синхронизацию прогресса с клиента: энергия
// обрезается до 0..1000, очки только растут, уровень считается из очков.
func (u *User) ApplySync(upd ProgressUpdate) {
	if upd.Energy != nil {
		u.Energy = progress.ClampEnergy(*upd.Energy)
	}
	if upd.Points != nil && *upd.Points > u.Points {
		u.Points = *upd.Points
	}
	u.Level = progress.LevelFor(u.Points)
}

// Profile — данные профиля из проверенной initData.
type Profile struct {
	TelegramID int64
	FirstName  string
	LastName   string
	Username   string
	PhotoURL   string
}

// ProgressUpdate — синхронизация прогресса. nil — поле не меняется.
// Уровень с клиента не принимается.
type ProgressUpdate struct {
	Energy *int   `json:"energy"`
	Points *int64 `json:"points"`
}

// Summary — публичная часть пользователя для лидерборда и рефералов.
type Summary struct {
	ID         uuid.UUID `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name"`
	Points     int64     `json:"points"`
	Level      int       `json:"level"`
}

// Summary возвращает публичную часть пользователя.
func (u *User) Summary() Summary {
	return Summary{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		Points:     u.Points,
		Level:      u.Level,
	}
}
