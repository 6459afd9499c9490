// Package common — response.go содержит помощники для HTTP-ответов gin
// и принципала (проверенного пользователя) запроса.
package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// principalKey — ключ принципала в gin.Context.
const principalKey = "principal"

// Principal — пользователь, личность которого подтверждена initData.
type Principal struct {
	UserID     uuid.UUID
	TelegramID int64
}

// SetPrincipal сохраняет принципала в контексте запроса.
func SetPrincipal(c *gin.Context, p Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom возвращает принципала запроса. ok == false, если запрос
// не прошёл через middleware авторизации.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// OK отправляет успешный ответ: {"success": true, ...fields}.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// StatusFor отображает вид ошибки в HTTP-статус.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrAuthInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAdminDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError отправляет ошибку клиенту. Причина отказа авторизации
// никогда не раскрывается, внутренние ошибки логируются.
func WriteError(c *gin.Context, err error) {
	status := StatusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusUnauthorized:
		msg = "unauthorized"
	case http.StatusServiceUnavailable:
		log.WithError(err).WithField("path", c.FullPath()).Error("Хранилище недоступно")
		msg = "service temporarily unavailable"
	case http.StatusInternalServerError:
		log.WithError(err).WithField("path", c.FullPath()).Error("Внутренняя ошибка")
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// BadRequest отправляет 400 с текстом ошибки разбора запроса.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":   "invalid request data",
		"details": err.Error(),
	})
}
