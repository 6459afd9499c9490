// Package quests — каталог квестов, прохождение квеста пользователем
// (pending → in_progress → completed) и ежедневные квесты с множителем.
package quests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// Type — вид квеста.
type Type string

const (
	TypeAffiliate Type = "affiliate" // переход по партнёрской ссылке
	TypeIAP       Type = "iap"       // покупка за Telegram Stars
	TypeSocial    Type = "social"    // подписка, репост
	TypeTon       Type = "ton"       // действие с TON-кошельком
)

// Status — состояние квеста у пользователя.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Quest — квест из каталога.
type Quest struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Type         Type      `db:"type" json:"type"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	RewardPoints int64     `db:"reward_points" json:"reward_points"`
	RewardEnergy int       `db:"reward_energy" json:"reward_energy"`
	AffiliateURL *string   `db:"affiliate_url" json:"affiliate_url,omitempty"`
	StarsPrice   *int      `db:"stars_price" json:"stars_price,omitempty"`
	IconEmoji    string    `db:"icon_emoji" json:"icon_emoji"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	OrderIndex   int       `db:"order_index" json:"order_index"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Reward — базовая награда квеста.
func (q *Quest) Reward() progress.Credit {
	return progress.Credit{Points: q.RewardPoints, Energy: q.RewardEnergy}
}

// UserQuest — квест конкретного пользователя.
type UserQuest struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	QuestID     uuid.UUID  `db:"quest_id" json:"quest_id"`
	Status      Status     `db:"status" json:"status"`
	StartedAt   *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	// RewardedAt — когда начислена награда. Единственный флаг однократного
	// начисления: сброс статуса через повторный старт его не трогает.
	RewardedAt *time.Time `db:"rewarded_at" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`

	Quest *Quest `json:"quest,omitempty"` // заполняется в списке квестов пользователя
}

// DailyQuest — квест дня с множителем награды.
type DailyQuest struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	QuestID    uuid.UUID       `db:"quest_id" json:"quest_id"`
	Date       time.Time       `db:"date" json:"date"`
	Multiplier decimal.Decimal `db:"multiplier" json:"multiplier"`
	IsActive   bool            `db:"is_active" json:"is_active"`

	Quest *Quest `json:"quest,omitempty"`
}

// Completion — запрос на завершение квеста с уже посчитанной наградой.
type Completion struct {
	UserID  uuid.UUID
	QuestID uuid.UUID
	Credit  progress.Credit
	// DailyDate — дата квеста дня, если награда увеличена множителем.
	DailyDate *time.Time
}

// CompletionResult — итог завершения квеста.
type CompletionResult struct {
	User       *users.User      `json:"user"`
	UserQuest  *UserQuest       `json:"userQuest"`
	Reward     progress.Credit  `json:"-"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
}
