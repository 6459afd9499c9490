// Package quests — handlers.go: HTTP-обработчики каталога, старта
// и завершения квестов, квестов дня.
package quests

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// Handler обрабатывает запросы квестов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type questRequest struct {
	QuestID string `json:"questId" binding:"required,uuid"`
}

type rewardResponse struct {
	Points int64 `json:"points"`
	Energy int   `json:"energy"`
}

// List — GET /api/quest: активный каталог.
func (h *Handler) List(c *gin.Context) {
	list, cached, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"quests": list, "cached": cached})
}

// Mine — GET /api/quest/mine: квесты пользователя с прогрессом.
func (h *Handler) Mine(c *gin.Context) {
	p, ok := common.PrincipalFrom(c)
	if !ok {
		common.WriteError(c, common.ErrAuthInvalid)
		return
	}

	list, err := h.service.ListMine(c.Request.Context(), p.UserID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"quests": list})
}

// Start — POST /api/quest {questId}
func (h *Handler) Start(c *gin.Context) {
	p, questID, ok := h.bind(c)
	if !ok {
		return
	}

	uq, err := h.service.Start(c.Request.Context(), p.UserID, questID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"userQuest": uq})
}

// Complete — PUT /api/quest {questId}
func (h *Handler) Complete(c *gin.Context) {
	p, questID, ok := h.bind(c)
	if !ok {
		return
	}

	res, err := h.service.Complete(c.Request.Context(), p.UserID, questID)
	if err != nil {
		common.WriteError(c, err)
		return
	}

	body := gin.H{
		"user":      res.User,
		"userQuest": res.UserQuest,
		"reward":    rewardResponse{Points: res.Reward.Points, Energy: res.Reward.Energy},
	}
	if res.Multiplier != nil {
		body["multiplier"] = res.Multiplier
	}
	common.OK(c, body)
}

// Daily — GET /api/quest/daily
func (h *Handler) Daily(c *gin.Context) {
	list, cached, err := h.service.Daily(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"dailyQuests": list, "cached": cached})
}

// bind достаёт принципала и questId из тела запроса.
func (h *Handler) bind(c *gin.Context) (common.Principal, uuid.UUID, bool) {
	p, ok := common.PrincipalFrom(c)
	if !ok {
		common.WriteError(c, common.ErrAuthInvalid)
		return common.Principal{}, uuid.Nil, false
	}

	var req questRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return common.Principal{}, uuid.Nil, false
	}
	questID, err := uuid.Parse(req.QuestID)
	if err != nil {
		common.BadRequest(c, err)
		return common.Principal{}, uuid.Nil, false
	}
	return p, questID, true
}
