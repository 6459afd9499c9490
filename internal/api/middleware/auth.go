package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/initdata"
)

// AuthScheme — схема заголовка Authorization: "tma <initData>".
const AuthScheme = "tma"

// UserResolver находит пользователя по Telegram ID.
type UserResolver interface {
	Resolve(ctx context.Context, telegramID int64) (*users.User, error)
}

// Auth проверяет initData из заголовка Authorization и кладёт
// принципала в контекст. Незарегистрированный пользователь получает 401:
// сначала нужен вход через /api/auth/init.
func Auth(verifier initdata.Verifier, resolver UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := initDataFrom(c.GetHeader("Authorization"))
		if !ok {
			common.WriteError(c, common.ErrAuthInvalid)
			return
		}

		id, err := verifier.Verify(raw)
		if err != nil {
			common.WriteError(c, err)
			return
		}

		u, err := resolver.Resolve(c.Request.Context(), id.TelegramID)
		if errors.Is(err, common.ErrUserNotFound) {
			log.WithField("telegram_id", id.TelegramID).Debug("Запрос от незарегистрированного пользователя")
			common.WriteError(c, common.ErrAuthInvalid)
			return
		}
		if err != nil {
			common.WriteError(c, err)
			return
		}

		common.SetPrincipal(c, common.Principal{UserID: u.ID, TelegramID: u.TelegramID})
		c.Next()
	}
}

// initDataFrom достаёт initData из значения заголовка.
func initDataFrom(header string) (string, bool) {
	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, AuthScheme) {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
