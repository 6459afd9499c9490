// Package admin — repository.go работает с таблицей admin_login_attempts.
package admin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/gaqt-backend/internal/common"
)

// Repository работает с админ-таблицами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, clientKey string, success bool) error {
	query := `INSERT INTO admin_login_attempts (client_key, success) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, clientKey, success); err != nil {
		return common.Storage("ошибка записи попытки входа", err)
	}
	return nil
}

// RecentFailures возвращает количество неудачных попыток начиная с since.
func (r *Repository) RecentFailures(ctx context.Context, clientKey string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE client_key = $1 AND success = FALSE AND attempt_time >= $2
	`
	var count int
	if err := r.db.QueryRow(ctx, query, clientKey, since).Scan(&count); err != nil {
		return 0, common.Storage("ошибка подсчёта попыток входа", err)
	}
	return count, nil
}
