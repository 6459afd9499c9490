// Package referrals — service.go: применение кода и список приглашённых.
package referrals

import (
	"context"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/cache"
	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/notify"
)

// maxCodeLength — коды длиннее заведомо не существуют.
const maxCodeLength = 32

// Store — хранилище рефералов.
type Store interface {
	ApplyReferral(ctx context.Context, code string, referredID uuid.UUID, bonus progress.Credit) (*Result, error)
	ReferralsOf(ctx context.Context, userID uuid.UUID) ([]*Entry, error)
}

// Service — бизнес-логика рефералов.
type Service struct {
	store    Store
	cache    cache.Cache
	granter  users.Granter
	notifier notify.Notifier
}

// NewService создаёт сервис рефералов.
func NewService(store Store, c cache.Cache, granter users.Granter, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{store: store, cache: c, granter: granter, notifier: notifier}
}

// NormalizeCode приводит введённый код к виду, в котором он хранится.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Apply применяет реферальный код за приглашённого referredID.
// Оба пользователя получают progress.ReferralBonus. Пятый приглашённый
// приносит пригласившему достижение referral_master.
func (s *Service) Apply(ctx context.Context, code string, referredID uuid.UUID) (*Result, error) {
	code = NormalizeCode(code)
	if code == "" || len(code) > maxCodeLength {
		return nil, common.ErrReferralCodeNotFound
	}

	res, err := s.store.ApplyReferral(ctx, code, referredID, progress.ReferralBonus)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"referrer_id": res.Referrer.ID,
		"referred_id": res.Referred.ID,
		"code":        code,
	}).Info("Реферальный код применён")

	if s.granter != nil && res.Referrer.ReferralCount >= achievements.ReferralMasterThreshold {
		u, err := s.granter.Grant(ctx, res.Referrer.ID, achievements.KindReferralMaster)
		if err != nil {
			log.WithError(err).WithField("user_id", res.Referrer.ID).Warn("Не удалось выдать достижение за рефералов")
		} else if u != nil {
			res.Referrer = u
		}
	}

	s.notifier.Notify(ctx, res.Referrer.TelegramID, notify.ReferralText(
		res.Referred.DisplayName(), progress.ReferralBonusPoints, progress.ReferralBonusEnergy,
	))

	s.cache.Invalidate(ctx, cache.UserProfileKey(res.Referrer.TelegramID))
	s.cache.Invalidate(ctx, cache.UserProfileKey(res.Referred.TelegramID))
	return res, nil
}

// List возвращает приглашённых пользователем.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Entry, error) {
	list, err := s.store.ReferralsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*Entry{}
	}
	return list, nil
}
