// Package users — handlers.go: HTTP-обработчики профиля, синхронизации
// прогресса и привязки кошелька. Пользователь всегда берётся из initData.
package users

import (
	"github.com/gin-gonic/gin"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// Handler обрабатывает запросы пользователя.
type Handler struct {
	service *Service
}

// NewHandler создаёт обработчик.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// syncResponse — урезанный пользователь в ответе на синхронизацию.
type syncResponse struct {
	ID       string `json:"id"`
	Energy   int    `json:"energy"`
	Points   int64  `json:"points"`
	Level    int    `json:"level"`
	LastSync string `json:"last_sync"`
}

type connectWalletRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

// Me — GET /api/user/me
func (h *Handler) Me(c *gin.Context) {
	p, ok := common.PrincipalFrom(c)
	if !ok {
		common.WriteError(c, common.ErrAuthInvalid)
		return
	}

	u, err := h.service.Get(c.Request.Context(), p.UserID)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"user": u})
}

// Sync — POST /api/user/sync {energy?, points?}
func (h *Handler) Sync(c *gin.Context) {
	p, ok := common.PrincipalFrom(c)
	if !ok {
		common.WriteError(c, common.ErrAuthInvalid)
		return
	}

	var req ProgressUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}

	u, err := h.service.Sync(c.Request.Context(), p.UserID, req)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{"user": syncResponse{
		ID:       u.ID.String(),
		Energy:   u.Energy,
		Points:   u.Points,
		Level:    u.Level,
		LastSync: u.LastSync.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}})
}

// ConnectWallet — POST /api/wallet/connect {walletAddress}
func (h *Handler) ConnectWallet(c *gin.Context) {
	p, ok := common.PrincipalFrom(c)
	if !ok {
		common.WriteError(c, common.ErrAuthInvalid)
		return
	}

	var req connectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, err)
		return
	}

	u, err := h.service.ConnectWallet(c.Request.Context(), p.UserID, req.WalletAddress)
	if err != nil {
		common.WriteError(c, err)
		return
	}
	common.OK(c, gin.H{
		"user":    u,
		"message": "Wallet connected",
	})
}
