package auth

import (
	"github.com/gin-gonic/gin"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// Handler обрабатывает вход.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initRequest struct {
	InitData   string `json:"initData" binding:"required"`
	StartParam string `json:"startParam"`
}

// Init — POST /api/auth/init {initData, startParam?}
func (h *Handler) Init(c *gin.Context) {
	var req initRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}

	res, err := h.service.Init(c.Request.Context(), req.InitData, req.StartParam)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{
		"user":          res.User,
		"created":       res.Created,
		"referralBonus": res.ReferralBonus,
	})
}
