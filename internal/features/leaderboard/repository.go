// Package leaderboard — таблица лидеров по очкам.
package leaderboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// Repository читает лидеров из таблицы users.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// TopUsersByPoints возвращает limit пользователей с наибольшими очками.
// При равенстве очков выше тот, кто зарегистрировался раньше.
func (r *Repository) TopUsersByPoints(ctx context.Context, limit int) ([]*users.User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+users.Columns+`
		FROM users
		ORDER BY points DESC, created_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, common.Storage("ошибка получения лидеров", err)
	}
	defer rows.Close()

	var list []*users.User
	for rows.Next() {
		u, err := users.ScanUser(rows)
		if err != nil {
			return nil, common.Storage("ошибка чтения лидера", err)
		}
		list = append(list, u)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("ошибка чтения лидеров", err)
	}
	return list, nil
}
