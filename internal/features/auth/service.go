// Package auth — вход из Web App: проверка initData, создание
// пользователя при первом входе и применение реферального кода из
// ссылки приглашения.
package auth

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/features/referrals"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/initdata"
)

// UserResolver находит или создаёт пользователя.
type UserResolver interface {
	ResolveOrCreate(ctx context.Context, p users.Profile) (*users.User, bool, error)
}

// ReferralApplier применяет реферальный код.
type ReferralApplier interface {
	Apply(ctx context.Context, code string, referredID uuid.UUID) (*referrals.Result, error)
}

// Result — итог входа.
type Result struct {
	User          *users.User
	Created       bool
	ReferralBonus bool
}

// Service выполняет вход.
type Service struct {
	verifier  initdata.Verifier
	users     UserResolver
	referrals ReferralApplier
}

// NewService создаёт сервис входа.
func NewService(verifier initdata.Verifier, u UserResolver, r ReferralApplier) *Service {
	return &Service{verifier: verifier, users: u, referrals: r}
}

// Init проверяет initData и возвращает пользователя. Реферальный код
// применяется только к только что созданному пользователю; код из тела
// запроса важнее start_param. Ошибка реферала не мешает входу.
func (s *Service) Init(ctx context.Context, rawInitData, startParam string) (*Result, error) {
	id, err := s.verifier.Verify(rawInitData)
	if err != nil {
		return nil, err
	}

	u, created, err := s.users.ResolveOrCreate(ctx, users.Profile{
		TelegramID: id.TelegramID,
		FirstName:  id.FirstName,
		LastName:   id.LastName,
		Username:   id.Username,
		PhotoURL:   id.PhotoURL,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{User: u, Created: created}
	if !created || s.referrals == nil {
		return res, nil
	}

	code := startParam
	if code == "" {
		code = id.StartParam
	}
	if referrals.NormalizeCode(code) == "" {
		return res, nil
	}

	applied, err := s.referrals.Apply(ctx, code, u.ID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"user_id": u.ID,
			"code":    code,
		}).Warn("Реферальный код при входе не применён")
		return res, nil
	}

	res.User = applied.Referred
	res.ReferralBonus = true
	return res, nil
}
