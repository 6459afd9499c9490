// Package referrals — repository.go работает с таблицей referrals.
package referrals

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/postgres"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

const columns = `r.id, r.referrer_id, r.referred_id, r.referral_code, r.reward_claimed, r.created_at`

// Repository работает с рефералами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ApplyReferral применяет код одной транзакцией: находит пригласившего,
// вставляет реферал (уникальный referred_id), начисляет бонус обоим и
// увеличивает referral_count. Повторная попытка для того же приглашённого
// возвращает common.ErrAlreadyReferred и ничего не начисляет.
func (r *Repository) ApplyReferral(ctx context.Context, code string, referredID uuid.UUID, bonus progress.Credit) (*Result, error) {
	var res Result
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var referrerID uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE referral_code = $1`, code).Scan(&referrerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrReferralCodeNotFound
		}
		if err != nil {
			return err
		}
		if referrerID == referredID {
			return common.ErrSelfReferral
		}

		// Обе строки блокируются в одном порядке до вставки реферала,
		// иначе встречные рефералы могут взаимно заблокироваться.
		rows, err := tx.Query(ctx, `
			SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE
		`, []uuid.UUID{referrerID, referredID})
		if err != nil {
			return err
		}
		locked := 0
		for rows.Next() {
			locked++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if locked != 2 {
			return common.ErrUserNotFound
		}

		var ref Referral
		err = tx.QueryRow(ctx, `
			INSERT INTO referrals AS r (referrer_id, referred_id, referral_code, reward_claimed)
			VALUES ($1, $2, $3, TRUE)
			ON CONFLICT (referred_id) DO NOTHING
			RETURNING `+columns,
			referrerID, referredID, code,
		).Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.ReferralCode, &ref.RewardClaimed, &ref.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return common.ErrAlreadyReferred
		}
		if err != nil {
			return err
		}
		res.Referral = &ref

		if _, err := tx.Exec(ctx, `
			UPDATE users SET referral_count = referral_count + 1 WHERE id = $1
		`, referrerID); err != nil {
			return err
		}

		if res.Referrer, err = users.CreditTx(ctx, tx, referrerID, bonus); err != nil {
			return err
		}
		res.Referred, err = users.CreditTx(ctx, tx, referredID, bonus)
		return err
	})
	if err != nil {
		return nil, common.Storage("ошибка применения реферального кода", err)
	}
	return &res, nil
}

// ReferralsOf возвращает приглашённых пользователем, новые первыми.
func (r *Repository) ReferralsOf(ctx context.Context, userID uuid.UUID) ([]*Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+columns+`, u.username, u.first_name, u.points
		FROM referrals r
		JOIN users u ON r.referred_id = u.id
		WHERE r.referrer_id = $1
		ORDER BY r.created_at DESC
	`, userID)
	if err != nil {
		return nil, common.Storage("ошибка получения рефералов", err)
	}
	defer rows.Close()

	var list []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.ReferrerID, &e.ReferredID, &e.ReferralCode, &e.RewardClaimed, &e.CreatedAt,
			&e.Username, &e.FirstName, &e.Points,
		); err != nil {
			return nil, common.Storage("ошибка чтения реферала", err)
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("ошибка чтения рефералов", err)
	}
	return list, nil
}
