package referrals

import (
	"github.com/gin-gonic/gin"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
)

// Handler обрабатывает запросы рефералов.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	ReferralCode string `json:"referralCode" binding:"required"`
}

// Apply — POST /api/referral {referralCode}
func (h *Handler) Apply(c *gin.Context) {
	p, ok := common.PrincipalFrom(c)
	if !ok {
		common.WriteError(c, common.ErrAuthInvalid)
		return
	}

	var req applyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}

	res, err := h.service.Apply(c.Request.Context(), req.ReferralCode, p.UserID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{
		"referral": res.Referral,
		"user":     res.Referred,
		"bonus": gin.H{
			"points": progress.ReferralBonusPoints,
			"energy": progress.ReferralBonusEnergy,
		},
	})
}

// List — GET /api/referral
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
	common.OK(c, gin.H{"referrals": list, "count": len(list)})
}
