// Package middleware содержит промежуточные обработчики gin для логирования,
// восстановления после паники, rate-limiting, авторизации по initData
// и ограничения времени запроса.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Logger логирует каждый запрос: метод, путь, статус, время, IP.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error("Запрос")
		case status >= 400:
			entry.Warn("Запрос")
		default:
			entry.Debug("Запрос")
		}
	}
}
