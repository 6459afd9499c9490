// Package admin — handlers.go: HTTP-операции админки под заголовком
// X-Admin-Password.
package admin

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/quests"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// PasswordHeader — заголовок с паролем администратора.
const PasswordHeader = "X-Admin-Password"

// DailyCreator делает квест ежедневным.
type DailyCreator interface {
	CreateDaily(ctx context.Context, questID uuid.UUID, multiplier decimal.Decimal) (*quests.DailyQuest, error)
}

// Awarder выдаёт достижение вручную.
type Awarder interface {
	Award(ctx context.Context, userID uuid.UUID, kind, name, icon string) (*achievements.UserAchievement, *users.User, error)
}

// Regenerator запускает регенерацию энергии.
type Regenerator interface {
	RegenerateEnergy(ctx context.Context) (int64, error)
}

// Handler обрабатывает админ-запросы.
type Handler struct {
	service      *Service
	daily        DailyCreator
	awarder      Awarder
	regenerator  Regenerator
	defaultMulti decimal.Decimal
}

// NewHandler создаёт обработчик админки.
func NewHandler(service *Service, daily DailyCreator, awarder Awarder, regenerator Regenerator, defaultMultiplier decimal.Decimal) *Handler {
	return &Handler{
		service:      service,
		daily:        daily,
		awarder:      awarder,
		regenerator:  regenerator,
		defaultMulti: defaultMultiplier,
	}
}

type dailyRequest struct {
	QuestID    string           `json:"questId" binding:"required,uuid"`
	Multiplier *decimal.Decimal `json:"multiplier"`
}

type awardRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Type   string `json:"type" binding:"required"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
}

// RequirePassword — middleware проверки пароля. Ключ клиента для
// блокировки — его IP.
func (h *Handler) RequirePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		password := c.GetHeader(PasswordHeader)
		if password == "" && h.service.Enabled() {
			common.WriteError(c, common.ErrWrongPassword)
			return
		}
		if err := h.service.VerifyPassword(c.Request.Context(), c.ClientIP(), password); err != nil {
			common.WriteError(c, err)
			return
		}
		c.Next()
	}
}

// CreateDaily — POST /api/admin/daily-quests {questId, multiplier?}
func (h *Handler) CreateDaily(c *gin.Context) {
	var req dailyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}
	questID, err := uuid.Parse(req.QuestID)
	if err != nil {
		common.BadRequest(c, err)
		return
	}

	multiplier := h.defaultMulti
	if req.Multiplier != nil {
		multiplier = *req.Multiplier
	}

	dq, err := h.daily.CreateDaily(c.Request.Context(), questID, multiplier)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"dailyQuest": dq})
}

// AwardAchievement — POST /api/admin/achievements {userId, type, name?, icon?}
func (h *Handler) AwardAchievement(c *gin.Context) {
	var req awardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		common.BadRequest(c, err)
		return
	}

	a, u, err := h.awarder.Award(c.Request.Context(), userID, req.Type, req.Name, req.Icon)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"achievement": a, "user": u})
}

// RegenerateEnergy — POST /api/admin/energy/regenerate
func (h *Handler) RegenerateEnergy(c *gin.Context) {
	affected, err := h.regenerator.RegenerateEnergy(c.Request.Context())
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"updated": affected})
}
