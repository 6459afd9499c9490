// Package admin — service.go содержит проверку пароля администратора
// с защитой от перебора.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// Store — журнал попыток входа.
type Store interface {
	LogAttempt(ctx context.Context, clientKey string, success bool) error
	RecentFailures(ctx context.Context, clientKey string, since time.Time) (int, error)
}

// Service проверяет пароль администратора.
type Service struct {
	store        Store
	passwordHash string
	maxFailures  int
	lockout      time.Duration
	now          func() time.Time
}

// NewService создаёт сервис. Пустой passwordHash отключает админку.
func NewService(store Store, passwordHash string, maxFailures int, lockout time.Duration) *Service {
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &Service{
		store:        store,
		passwordHash: strings.TrimSpace(passwordHash),
		maxFailures:  maxFailures,
		lockout:      lockout,
		now:          time.Now,
	}
}

// WithClock подменяет часы.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Enabled сообщает, задан ли хеш пароля.
func (s *Service) Enabled() bool {
	return s.passwordHash != ""
}

// VerifyPassword проверяет пароль администратора с использованием Argon2id.
// maxFailures неудачных попыток с одного clientKey за lockout блокируют вход.
func (s *Service) VerifyPassword(ctx context.Context, clientKey, password string) error {
	if !s.Enabled() {
		return common.ErrAdminDisabled
	}

	failures, err := s.store.RecentFailures(ctx, clientKey, s.now().Add(-s.lockout))
	if err != nil {
		return err
	}
	if failures >= s.maxFailures {
		log.WithField("client", clientKey).Warn("Вход в админку заблокирован")
		return common.ErrTooManyAttempts
	}

	match := verifyArgon2id(password, s.passwordHash)

	if err := s.store.LogAttempt(ctx, clientKey, match); err != nil {
		return err
	}

	if !match {
		log.WithField("client", clientKey).Warn("Неверный пароль администратора")
		return common.ErrWrongPassword
	}
	return nil
}

// --- Криптографические утилиты ---

// Params — параметры Argon2id.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  int
	KeyLength   uint32
}

// DefaultParams — параметры хеша по умолчанию.
var DefaultParams = Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword хеширует пароль в формате
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>
func HashPassword(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// verifyArgon2id проверяет пароль по хешу Argon2id.
func verifyArgon2id(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравнение в постоянном времени
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
