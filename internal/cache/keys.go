package cache

import (
	"fmt"
	"time"
)

// Ключи и время жизни записей.
const (
	KeyLeaderboard = "leaderboard:top100"
	TTLLeaderboard = time.Hour

	KeyActiveQuests = "quests:active"
	TTLActiveQuests = 30 * time.Minute

	TTLDailyQuests = 30 * time.Minute

	TTLUserProfile = 5 * time.Minute
)

// UserProfileKey — ключ профиля пользователя по Telegram ID.
func UserProfileKey(telegramID int64) string {
	return fmt.Sprintf("user:%d:profile", telegramID)
}

// DailyQuestsKey — ключ квестов дня за дату date. После полуночи ключ
// меняется, и вчерашний список не отдаётся.
func DailyQuestsKey(date time.Time) string {
	return "quests:daily:" + date.Format("2006-01-02")
}
