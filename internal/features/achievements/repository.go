// Package achievements — repository.go работает с таблицей user_achievements.
package achievements

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/postgres"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

const columns = `id, user_id, achievement_type, achievement_name, icon_emoji, earned_at`

// Repository работает с достижениями.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func scanAchievement(row pgx.Row) (*UserAchievement, error) {
	var a UserAchievement
	if err := row.Scan(&a.ID, &a.UserID, &a.Kind, &a.Name, &a.Icon, &a.EarnedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// AwardAchievement вставляет достижение, если его ещё нет, и в той же
// транзакции начисляет бонус. Повторная выдача возвращает (nil, nil, nil):
// уникальный индекс (user_id, achievement_type) не даёт начислить бонус дважды.
func (r *Repository) AwardAchievement(ctx context.Context, a *UserAchievement, bonus progress.Credit) (*UserAchievement, *users.User, error) {
	var (
		awarded *UserAchievement
		user    *users.User
	)
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		awarded, err = scanAchievement(tx.QueryRow(ctx, `
			INSERT INTO user_achievements (user_id, achievement_type, achievement_name, icon_emoji)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id, achievement_type) DO NOTHING
			RETURNING `+columns,
			a.UserID, a.Kind, a.Name, a.Icon,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			awarded = nil
			return nil
		}
		if isForeignKeyViolation(err) {
			return common.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		user, err = users.CreditTx(ctx, tx, a.UserID, bonus)
		return err
	})
	if err != nil {
		return nil, nil, common.Storage("ошибка выдачи достижения", err)
	}
	return awarded, user, nil
}

// AchievementsOf возвращает достижения пользователя, новые первыми.
func (r *Repository) AchievementsOf(ctx context.Context, userID uuid.UUID) ([]*UserAchievement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY earned_at DESC, achievement_type
	`, userID)
	if err != nil {
		return nil, common.Storage("ошибка получения достижений", err)
	}
	defer rows.Close()

	var list []*UserAchievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, common.Storage("ошибка чтения достижения", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("ошибка чтения достижений", err)
	}
	return list, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
