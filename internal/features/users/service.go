// Package users — service.go: создание пользователя при первом входе,
// синхронизация прогресса, привязка кошелька и регенерация энергии.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gaqt-backend/internal/cache"
	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
)

// maxCodeAttempts — сколько раз пробуем сгенерировать свободный реферальный код.
const maxCodeAttempts = 5

// achievementWalletConnected — достижение за привязку кошелька.
const achievementWalletConnected = "wallet_connected"

// Store — хранилище пользователей.
type Store interface {
	UserByTelegramID(ctx context.Context, telegramID int64) (*User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpsertUser(ctx context.Context, p Profile, referralCode string, startEnergy int) (*User, bool, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, upd ProgressUpdate) (*User, error)
	SetWallet(ctx context.Context, id uuid.UUID, address string) (*User, error)
	RegenerateEnergy(ctx context.Context, amount int, staleBefore time.Time) (int64, error)
}

// Granter выдаёт достижение. Возвращает обновлённого пользователя,
// если достижение выдано этим вызовом, и nil, если оно уже было.
type Granter interface {
	Grant(ctx context.Context, userID uuid.UUID, kind string) (*User, error)
}

// Service — бизнес-логика пользователей.
type Service struct {
	store       Store
	cache       cache.Cache
	granter     Granter
	startEnergy int
	now         func() time.Time
}

// NewService создаёт сервис пользователей.
func NewService(store Store, c cache.Cache, granter Granter, startEnergy int) *Service {
	return &Service{
		store:       store,
		cache:       c,
		granter:     granter,
		startEnergy: progress.ClampEnergy(startEnergy),
		now:         time.Now,
	}
}

// ResolveOrCreate возвращает пользователя по Telegram ID, создавая его
// при первом входе. created == true только для нового пользователя.
func (s *Service) ResolveOrCreate(ctx context.Context, p Profile) (*User, bool, error) {
	if p.TelegramID == 0 {
		return nil, false, fmt.Errorf("%w: пустой Telegram ID", common.ErrValidation)
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := common.GenerateReferralCode()
		if err != nil {
			return nil, false, err
		}

		u, created, err := s.store.UpsertUser(ctx, p, code, s.startEnergy)
		if errors.Is(err, ErrReferralCodeTaken) {
			log.WithField("attempt", attempt).Debug("Реферальный код занят, генерируем новый")
			continue
		}
		if err != nil {
			return nil, false, err
		}

		if created {
			log.WithFields(log.Fields{
				"user_id":     u.ID,
				"telegram_id": u.TelegramID,
			}).Info("Новый пользователь")
		}
		cache.SetJSON(ctx, s.cache, cache.UserProfileKey(u.TelegramID), u, cache.TTLUserProfile)
		return u, created, nil
	}
	return nil, false, fmt.Errorf("не удалось подобрать свободный реферальный код за %d попыток", maxCodeAttempts)
}

// Resolve находит пользователя по Telegram ID. Профиль берётся из кеша,
// поэтому подходит для определения ID, но не для актуальных очков.
func (s *Service) Resolve(ctx context.Context, telegramID int64) (*User, error) {
	if u, ok := cache.GetJSON[*User](ctx, s.cache, cache.UserProfileKey(telegramID)); ok && u != nil {
		return u, nil
	}

	u, err := s.store.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.cache, cache.UserProfileKey(telegramID), u, cache.TTLUserProfile)
	return u, nil
}

// Get возвращает актуальное состояние пользователя из хранилища.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.UserByID(ctx, id)
}

// Sync применяет прогресс, присланный клиентом.
func (s *Service) Sync(ctx context.Context, id uuid.UUID, upd ProgressUpdate) (*User, error) {
	if upd.Energy != nil && *upd.Energy < 0 {
		return nil, common.ErrInvalidProgress
	}
	if upd.Points != nil && (*upd.Points < 0 || *upd.Points > progress.MaxPoints) {
		return nil, common.ErrInvalidProgress
	}

	u, err := s.store.UpdateProgress(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.UserProfileKey(u.TelegramID))
	return u, nil
}

// ConnectWallet привязывает TON-кошелёк и выдаёт достижение wallet_connected.
func (s *Service) ConnectWallet(ctx context.Context, id uuid.UUID, address string) (*User, error) {
	address = strings.TrimSpace(address)
	if address == "" || len(address) > MaxWalletLength {
		return nil, common.ErrInvalidWallet
	}

	u, err := s.store.SetWallet(ctx, id, address)
	if err != nil {
		return nil, err
	}

	if s.granter != nil {
		awarded, err := s.granter.Grant(ctx, id, achievementWalletConnected)
		if err != nil {
			log.WithError(err).WithField("user_id", id).Warn("Не удалось выдать достижение за кошелёк")
		} else if awarded != nil {
			u = awarded
		}
	}

	s.cache.Invalidate(ctx, cache.UserProfileKey(u.TelegramID))
	return u, nil
}

// RegenerateEnergy начисляет энергию тем, кто давно не синхронизировался.
func (s *Service) RegenerateEnergy(ctx context.Context) (int64, error) {
	staleBefore := s.now().Add(-progress.RegenInterval)
	affected, err := s.store.RegenerateEnergy(ctx, progress.RegenEnergyAmount, staleBefore)
	if err != nil {
		return 0, err
	}
	log.WithField("users", affected).Debug("Регенерация энергии выполнена")
	return affected, nil
}
