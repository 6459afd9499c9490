package achievements

import (
	"github.com/gin-gonic/gin"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// Handler обрабатывает запросы достижений.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List — GET /api/achievements
func (h *Handler) List(c *gin.Context) {
	p, ok := common.PrincipalFrom(c)
	if !ok {
		common.WriteError(c, common.ErrAuthInvalid)
		return
	}

	list, err := h.service.List(c.Request.Context(), p.UserID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{
		"achievements": list,
		"count":        len(list),
		"catalog":      Catalog(),
	})
}
