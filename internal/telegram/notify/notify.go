// Package notify отправляет пользователям сообщения от имени бота:
// открытые достижения и реферальные бонусы. Отправка best-effort,
// ошибка никогда не отменяет операцию, которая её вызвала.
package notify

//go:generate mockgen -source=notify.go -destination=mock/notifier.go -package=mock

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// sendTimeout ограничивает одну отправку сообщения.
const sendTimeout = 10 * time.Second

// Notifier отправляет сообщение пользователю по Telegram ID.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string)
}

// Telego — Notifier поверх Bot API.
type Telego struct {
	bot *telego.Bot
}

// NewTelego создаёт бота и проверяет токен через getMe.
func NewTelego(ctx context.Context, token string) (*Telego, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка getMe: %w", err)
	}
	log.Infof("Уведомления от имени @%s", me.Username)

	return &Telego{bot: bot}, nil
}

// Notify отправляет сообщение в фоне, не задерживая запрос.
func (t *Telego) Notify(_ context.Context, telegramID int64, text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if _, err := t.bot.SendMessage(ctx, tu.Message(tu.ID(telegramID), text)); err != nil {
			log.WithError(err).WithField("telegram_id", telegramID).Warn("Ошибка отправки уведомления")
		}
	}()
}

// Noop — Notifier, который ничего не отправляет.
type Noop struct{}

func (Noop) Notify(context.Context, int64, string) {}

// AchievementText — текст о новом достижении.
func AchievementText(icon, name string, bonus int64) string {
	return fmt.Sprintf("%s Achievement unlocked: %s\n+%s points", icon, name, common.FormatNumber(bonus))
}

// ReferralText — текст о реферальном бонусе.
func ReferralText(friendName string, points int64, energy int) string {
	if friendName == "" {
		friendName = "A friend"
	}
	return fmt.Sprintf("🤝 %s joined with your referral code!\n+%s points, +%d energy",
		friendName, common.FormatNumber(points), energy)
}
