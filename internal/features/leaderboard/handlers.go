package leaderboard

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// Handler обрабатывает запросы таблицы лидеров.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Top — GET /api/leaderboard?limit=
func (h *Handler) Top(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			common.BadRequest(c, err)
			return
		}
		limit = n
	}

	list, cached, err := h.service.Top(c.Request.Context(), limit)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"leaderboard": list, "count": len(list), "cached": cached})
}
