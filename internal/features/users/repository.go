// Package users — repository.go работает с таблицей users.
package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/postgres"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
)

// Columns — колонки users в порядке ScanUser. Нужны другим репозиториям,
// которые возвращают пользователя из своих транзакций.
const Columns = `id, telegram_id, username, first_name, last_name, photo_url, ton_wallet,
	energy, points, level, referral_code, referral_count, last_sync, created_at, updated_at`

// Repository предоставляет методы для работы с пользователями.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий пользователей.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ScanUser читает строку с колонками Columns.
func ScanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.PhotoURL, &u.TonWallet,
		&u.Energy, &u.Points, &u.Level, &u.ReferralCode, &u.ReferralCount,
		&u.LastSync, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByTelegramID ищет пользователя по Telegram ID.
func (r *Repository) UserByTelegramID(ctx context.Context, telegramID int64) (*User, error) {
	u, err := ScanUser(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM users WHERE telegram_id = $1`, telegramID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, common.Storage("ошибка получения пользователя", err)
	}
	return u, nil
}

// UserByID ищет пользователя по внутреннему ID.
func (r *Repository) UserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := ScanUser(r.db.QueryRow(ctx, `SELECT `+Columns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, common.Storage("ошибка получения пользователя", err)
	}
	return u, nil
}

// UpsertUser создаёт пользователя или обновляет профиль существующего.
// Гонка двух первых входов решается уникальным индексом telegram_id:
// второй INSERT превращается в UPDATE и возвращает ту же строку.
//
// created == true, только если строка была вставлена этим вызовом.
func (r *Repository) UpsertUser(ctx context.Context, p Profile, referralCode string, startEnergy int) (*User, bool, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, photo_url, referral_code, energy)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = EXCLUDED.username,
		    first_name = EXCLUDED.first_name,
		    last_name = EXCLUDED.last_name,
		    photo_url = EXCLUDED.photo_url,
		    updated_at = NOW()
		RETURNING ` + Columns + `, (xmax = 0) AS inserted
	`
	var (
		u       User
		created bool
	)
	err := r.db.QueryRow(ctx, query,
		p.TelegramID, p.Username, p.FirstName, p.LastName, p.PhotoURL,
		referralCode, progress.ClampEnergy(startEnergy),
	).Scan(
		&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName, &u.PhotoURL, &u.TonWallet,
		&u.Energy, &u.Points, &u.Level, &u.ReferralCode, &u.ReferralCount,
		&u.LastSync, &u.CreatedAt, &u.UpdatedAt, &created,
	)
	if isUniqueViolation(err, "users_referral_code_key") {
		return nil, false, ErrReferralCodeTaken
	}
	if err != nil {
		return nil, false, common.Storage("ошибка создания пользователя", err)
	}
	return &u, created, nil
}

// UpdateProgress применяет синхронизацию прогресса под блокировкой строки.
func (r *Repository) UpdateProgress(ctx context.Context, id uuid.UUID, upd ProgressUpdate) (*User, error) {
	var updated *User
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		u, err := lockUser(ctx, tx, id)
		if err != nil {
			return err
		}
		u.ApplySync(upd)

		updated, err = ScanUser(tx.QueryRow(ctx, `
			UPDATE users
			SET energy = $2, points = $3, level = $4, last_sync = NOW(), updated_at = NOW()
			WHERE id = $1
			RETURNING `+Columns,
			id, u.Energy, u.Points, u.Level,
		))
		return err
	})
	if err != nil {
		return nil, common.Storage("ошибка синхронизации прогресса", err)
	}
	return updated, nil
}

// SetWallet привязывает TON-кошелёк.
func (r *Repository) SetWallet(ctx context.Context, id uuid.UUID, address string) (*User, error) {
	u, err := ScanUser(r.db.QueryRow(ctx, `
		UPDATE users SET ton_wallet = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+Columns,
		id, address,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	if err != nil {
		return nil, common.Storage("ошибка привязки кошелька", err)
	}
	return u, nil
}

// RegenerateEnergy начисляет amount энергии (с потолком) всем, у кого энергия
// ниже потолка и последняя синхронизация раньше staleBefore.
// Возвращает число затронутых пользователей.
func (r *Repository) RegenerateEnergy(ctx context.Context, amount int, staleBefore time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET energy = LEAST(energy + $1, $2), last_sync = NOW(), updated_at = NOW()
		WHERE energy < $2 AND last_sync < $3
	`, amount, progress.MaxEnergy, staleBefore)
	if err != nil {
		return 0, common.Storage("ошибка регенерации энергии", err)
	}
	return tag.RowsAffected(), nil
}

// CreditTx начисляет очки и энергию внутри чужой транзакции.
// Строка блокируется, уровень пересчитывается по правилам леджера.
func CreditTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, c progress.Credit) (*User, error) {
	u, err := lockUser(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	u.Credit(c)

	return ScanUser(tx.QueryRow(ctx, `
		UPDATE users
		SET points = $2, energy = $3, level = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+Columns,
		id, u.Points, u.Energy, u.Level,
	))
}

// lockUser читает пользователя с блокировкой FOR UPDATE.
func lockUser(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*User, error) {
	u, err := ScanUser(tx.QueryRow(ctx, `SELECT `+Columns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrUserNotFound
	}
	return u, err
}

// isUniqueViolation проверяет нарушение уникального ограничения constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
