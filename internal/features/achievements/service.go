// Package achievements — service.go: выдача достижений и уведомления.
package achievements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
	"serotonyl.ru/gaqt-backend/internal/telegram/notify"
)

// Store — хранилище достижений.
type Store interface {
	AwardAchievement(ctx context.Context, a *UserAchievement, bonus progress.Credit) (*UserAchievement, *users.User, error)
	AchievementsOf(ctx context.Context, userID uuid.UUID) ([]*UserAchievement, error)
}

// Service выдаёт достижения.
type Service struct {
	store    Store
	notifier notify.Notifier
}

// NewService создаёт сервис достижений.
func NewService(store Store, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{store: store, notifier: notifier}
}

// Award выдаёт достижение kind. Пустые name/icon берутся из каталога;
// достижение вне каталога требует name.
//
// Бонус +500 очков начисляется атомарно со вставкой и только один раз.
// Повторная выдача возвращает common.ErrAchievementEarned.
func (s *Service) Award(ctx context.Context, userID uuid.UUID, kind, name, icon string) (*UserAchievement, *users.User, error) {
	a, err := newAchievement(userID, kind, name, icon)
	if err != nil {
		return nil, nil, err
	}

	awarded, user, err := s.store.AwardAchievement(ctx, a, progress.AchievementBonus)
	if err != nil {
		return nil, nil, err
	}
	if awarded == nil {
		return nil, nil, common.ErrAchievementEarned
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"achievement": awarded.Kind,
	}).Info("Достижение получено")

	if user != nil {
		s.notifier.Notify(ctx, user.TelegramID, notify.AchievementText(awarded.Icon, awarded.Name, progress.AchievementBonusPoints))
	}
	return awarded, user, nil
}

// Grant выдаёт достижение из каталога. Уже полученное достижение не
// считается ошибкой: возвращается (nil, nil).
func (s *Service) Grant(ctx context.Context, userID uuid.UUID, kind string) (*users.User, error) {
	_, user, err := s.Award(ctx, userID, kind, "", "")
	if errors.Is(err, common.ErrAchievementEarned) {
		return nil, nil
	}
	return user, err
}

// List возвращает достижения пользователя.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*UserAchievement, error) {
	list, err := s.store.AchievementsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*UserAchievement{}
	}
	return list, nil
}

// newAchievement собирает запись достижения и проверяет поля.
func newAchievement(userID uuid.UUID, kind, name, icon string) (*UserAchievement, error) {
	kind = strings.TrimSpace(kind)
	name = strings.TrimSpace(name)
	icon = strings.TrimSpace(icon)

	if kind == "" || utf8.RuneCountInString(kind) > maxKindLength {
		return nil, common.ErrUnknownAchievement
	}

	if def, ok := Lookup(kind); ok {
		if name == "" {
			name = def.Name
		}
		if icon == "" {
			icon = def.Icon
		}
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownAchievement, kind)
	}
	if icon == "" {
		icon = defaultIcon
	}
	if utf8.RuneCountInString(name) > maxNameLength || utf8.RuneCountInString(icon) > maxIconLength {
		return nil, common.ErrInvalidAchievement
	}

	return &UserAchievement{
		UserID: userID,
		Kind:   kind,
		Name:   name,
		Icon:   icon,
	}, nil
}
