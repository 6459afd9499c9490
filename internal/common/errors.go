// Package common — errors.go определяет виды ошибок, которые используются
// во всех модулях бэкенда. Конкретные ошибки оборачивают один из видов,
// поэтому вызывающий код проверяет их через errors.Is.
package common

import (
	"errors"
	"fmt"
)

// Виды ошибок. HTTP-слой отображает их в статусы (см. response.go).
var (
	// ErrAuthInvalid — подпись initData не прошла проверку, данные устарели или повреждены
	ErrAuthInvalid = errors.New("недействительные данные авторизации")
	// ErrNotFound — квест, пользователь или реферальный код не найдены
	ErrNotFound = errors.New("не найдено")
	// ErrConflict — повторное действие, которое разрешено только один раз
	ErrConflict = errors.New("конфликт")
	// ErrValidation — некорректные входные данные
	ErrValidation = errors.New("некорректные данные")
	// ErrStorageUnavailable — хранилище вернуло ошибку или не ответило вовремя
	ErrStorageUnavailable = errors.New("хранилище недоступно")
)

// Ошибки пользователей
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = fmt.Errorf("%w: пользователь не найден", ErrNotFound)
	// ErrInvalidWallet — пустой или слишком длинный адрес кошелька
	ErrInvalidWallet = fmt.Errorf("%w: некорректный адрес кошелька", ErrValidation)
	// ErrInvalidProgress — энергия или очки вне допустимого диапазона
	ErrInvalidProgress = fmt.Errorf("%w: некорректные значения прогресса", ErrValidation)
)

// Ошибки квестов
var (
	ErrQuestNotFound         = fmt.Errorf("%w: квест не найден", ErrNotFound)
	ErrQuestAlreadyCompleted = fmt.Errorf("%w: награда за квест уже получена", ErrConflict)
	ErrInvalidMultiplier     = fmt.Errorf("%w: множитель должен быть не меньше 1", ErrValidation)
)

// Ошибки рефералов
var (
	ErrReferralCodeNotFound = fmt.Errorf("%w: реферальный код не найден", ErrNotFound)
	ErrAlreadyReferred      = fmt.Errorf("%w: пользователь уже приглашён", ErrConflict)
	ErrSelfReferral         = fmt.Errorf("%w: нельзя использовать собственный код", ErrValidation)
)

// Ошибки достижений
var (
	ErrAchievementEarned  = fmt.Errorf("%w: достижение уже получено", ErrConflict)
	ErrUnknownAchievement = fmt.Errorf("%w: неизвестный тип достижения", ErrValidation)
	ErrInvalidAchievement = fmt.Errorf("%w: слишком длинное название или иконка достижения", ErrValidation)
)

// Ошибки админки
var (
	// ErrWrongPassword — неверный пароль администратора
	ErrWrongPassword = fmt.Errorf("%w: неверный пароль", ErrAuthInvalid)
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, попробуйте позже")
	// ErrAdminDisabled — ADMIN_PASSWORD_HASH не задан
	ErrAdminDisabled = errors.New("админ-панель отключена")
)

// StorageError — ошибка хранилища. Совпадает и с ErrStorageUnavailable,
// и с исходной ошибкой драйвера (например, pgx.ErrNoRows).
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageUnavailable, e.Err}
}

// Storage оборачивает ошибку драйвера описанием операции.
// Ошибки, уже имеющие доменный вид, возвращаются без изменений.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomain(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomain сообщает, относится ли ошибка к одному из доменных видов
// (всё, кроме сбоя хранилища).
func IsDomain(err error) bool {
	return errors.Is(err, ErrAuthInvalid) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrValidation)
}
