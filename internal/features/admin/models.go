// Package admin — защищённые паролем операции оператора: квесты дня,
// ручная выдача достижений, внеочередная регенерация энергии.
// models.go описывает попытки входа.
package admin

import "time"

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	ClientKey   string    `db:"client_key"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// Значения по умолчанию для блокировки.
const (
	DefaultMaxFailures = 3
	DefaultLockout     = time.Hour
)
