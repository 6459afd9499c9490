// Package referrals — реферальная программа: новый пользователь вводит
// код пригласившего, оба получают +1000 очков и +100 энергии.
// Пригласить одного пользователя можно только один раз.
package referrals

import (
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// Referral — связь пригласившего и приглашённого.
type Referral struct {
	ID            uuid.UUID `db:"id" json:"id"`
	ReferrerID    uuid.UUID `db:"referrer_id" json:"referrer_id"`
	ReferredID    uuid.UUID `db:"referred_id" json:"referred_id"`
	ReferralCode  string    `db:"referral_code" json:"referral_code"`
	RewardClaimed bool      `db:"reward_claimed" json:"reward_claimed"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Entry — приглашённый в списке рефералов пользователя.
type Entry struct {
	Referral
	Username  string `db:"username" json:"username,omitempty"`
	FirstName string `db:"first_name" json:"first_name"`
	Points    int64  `db:"points" json:"points"`
}

// Result — итог применения реферального кода.
type Result struct {
	Referral *Referral
	Referrer *users.User
	Referred *users.User
}
