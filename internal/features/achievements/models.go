// Package achievements — достижения: каталог, выдача один раз на
// пользователя с бонусом +500 очков, список полученных.
package achievements

import (
	"time"

	"github.com/google/uuid"
)

// Типы достижений из каталога.
const (
	KindFirstQuest      = "first_quest"
	KindWalletConnected = "wallet_connected"
	KindReferralMaster  = "referral_master"
	KindDailyStreak     = "daily_streak"
	KindTop10           = "top_10"
)

const (
	// ReferralMasterThreshold — сколько приглашённых нужно для referral_master
	ReferralMasterThreshold = 5
	// DailyStreakDays — сколько дней подряд с выполненным ежедневным квестом нужно для daily_streak
	DailyStreakDays = 7
	// TopPlayersCount — места лидерборда, дающие top_10
	TopPlayersCount = 10

	// maxKindLength — ограничение колонки achievement_type
	maxKindLength = 64
	// maxNameLength и maxIconLength — ограничения achievement_name и icon_emoji в символах
	maxNameLength = 255
	maxIconLength = 16
	// defaultIcon — иконка для достижений вне каталога
	defaultIcon = "🏆"
)

// Definition — описание достижения в каталоге.
type Definition struct {
	Kind        string `json:"type"`
	Name        string `json:"name"`
	Icon        string `json:"icon_emoji"`
	Description string `json:"description"`
}

// catalog — встроенные достижения в порядке показа.
var catalog = []Definition{
	{Kind: KindFirstQuest, Name: "First Steps", Icon: "🎯", Description: "Complete your first quest"},
	{Kind: KindWalletConnected, Name: "Web3 Pioneer", Icon: "💎", Description: "Connect your TON wallet"},
	{Kind: KindReferralMaster, Name: "Social Butterfly", Icon: "👥", Description: "Invite 5 friends"},
	{Kind: KindDailyStreak, Name: "Daily Grinder", Icon: "🔥", Description: "Complete daily quests 7 days in a row"},
	{Kind: KindTop10, Name: "Elite Player", Icon: "🏆", Description: "Reach the top 10 of the leaderboard"},
}

// Catalog возвращает копию каталога.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup ищет достижение в каталоге.
func Lookup(kind string) (Definition, bool) {
	for _, d := range catalog {
		if d.Kind == kind {
			return d, true
		}
	}
	return Definition{}, false
}

// UserAchievement — полученное пользователем достижение.
type UserAchievement struct {
	ID       uuid.UUID `db:"id" json:"id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	Kind     string    `db:"achievement_type" json:"achievement_type"`
	Name     string    `db:"achievement_name" json:"achievement_name"`
	Icon     string    `db:"icon_emoji" json:"icon_emoji"`
	EarnedAt time.Time `db:"earned_at" json:"earned_at"`
}
