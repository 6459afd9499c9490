// Package quests — repository.go работает с таблицами quests, user_quests,
// daily_quests и daily_quest_completions.
package quests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/db/postgres"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

const (
	questColumns = `q.id, q.type, q.title, q.description, q.reward_points, q.reward_energy,
		q.affiliate_url, q.stars_price, q.icon_emoji, q.is_active, q.order_index, q.created_at`
	userQuestColumns = `uq.id, uq.user_id, uq.quest_id, uq.status, uq.started_at,
		uq.completed_at, uq.rewarded_at, uq.created_at`
	dailyColumns = `dq.id, dq.quest_id, dq.date, dq.multiplier::text, dq.is_active`
)

// Repository работает с квестами.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий квестов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func questDest(q *Quest) []any {
	return []any{
		&q.ID, &q.Type, &q.Title, &q.Description, &q.RewardPoints, &q.RewardEnergy,
		&q.AffiliateURL, &q.StarsPrice, &q.IconEmoji, &q.IsActive, &q.OrderIndex, &q.CreatedAt,
	}
}

func userQuestDest(uq *UserQuest) []any {
	return []any{
		&uq.ID, &uq.UserID, &uq.QuestID, &uq.Status, &uq.StartedAt,
		&uq.CompletedAt, &uq.RewardedAt, &uq.CreatedAt,
	}
}

func scanQuest(row pgx.Row) (*Quest, error) {
	var q Quest
	if err := row.Scan(questDest(&q)...); err != nil {
		return nil, err
	}
	return &q, nil
}

func scanUserQuest(row pgx.Row) (*UserQuest, error) {
	var uq UserQuest
	if err := row.Scan(userQuestDest(&uq)...); err != nil {
		return nil, err
	}
	return &uq, nil
}

// scanDailyWithQuest читает dailyColumns + questColumns.
func scanDailyWithQuest(row pgx.Row) (*DailyQuest, error) {
	var (
		dq         DailyQuest
		q          Quest
		multiplier string
	)
	dest := append([]any{&dq.ID, &dq.QuestID, &dq.Date, &multiplier, &dq.IsActive}, questDest(&q)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m, err := decimal.NewFromString(multiplier)
	if err != nil {
		return nil, fmt.Errorf("некорректный множитель %q: %w", multiplier, err)
	}
	dq.Multiplier = m
	dq.Quest = &q
	return &dq, nil
}

// QuestByID возвращает квест каталога.
func (r *Repository) QuestByID(ctx context.Context, id uuid.UUID) (*Quest, error) {
	q, err := scanQuest(r.db.QueryRow(ctx, `SELECT `+questColumns+` FROM quests q WHERE q.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrQuestNotFound
	}
	if err != nil {
		return nil, common.Storage("ошибка получения квеста", err)
	}
	return q, nil
}

// ActiveQuests возвращает активные квесты в порядке показа.
func (r *Repository) ActiveQuests(ctx context.Context) ([]*Quest, error) {
	return r.queryQuests(ctx, `
		SELECT `+questColumns+`
		FROM quests q
		WHERE q.is_active = TRUE
		ORDER BY q.order_index ASC, q.created_at ASC
	`)
}

// RandomActiveQuests возвращает n случайных активных квестов.
func (r *Repository) RandomActiveQuests(ctx context.Context, n int) ([]*Quest, error) {
	return r.queryQuests(ctx, `
		SELECT `+questColumns+`
		FROM quests q
		WHERE q.is_active = TRUE
		ORDER BY random()
		LIMIT $1
	`, n)
}

func (r *Repository) queryQuests(ctx context.Context, query string, args ...any) ([]*Quest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, common.Storage("ошибка получения квестов", err)
	}
	defer rows.Close()

	var list []*Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, common.Storage("ошибка чтения квеста", err)
		}
		list = append(list, q)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("ошибка чтения квестов", err)
	}
	return list, nil
}

// UserQuests возвращает квесты пользователя вместе с квестом каталога.
func (r *Repository) UserQuests(ctx context.Context, userID uuid.UUID) ([]*UserQuest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userQuestColumns+`, `+questColumns+`
		FROM user_quests uq
		JOIN quests q ON uq.quest_id = q.id
		WHERE uq.user_id = $1
		ORDER BY q.order_index ASC
	`, userID)
	if err != nil {
		return nil, common.Storage("ошибка получения квестов пользователя", err)
	}
	defer rows.Close()

	var list []*UserQuest
	for rows.Next() {
		var (
			uq UserQuest
			q  Quest
		)
		if err := rows.Scan(append(userQuestDest(&uq), questDest(&q)...)...); err != nil {
			return nil, common.Storage("ошибка чтения квеста пользователя", err)
		}
		uq.Quest = &q
		list = append(list, &uq)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("ошибка чтения квестов пользователя", err)
	}
	return list, nil
}

// StartQuest переводит квест пользователя в in_progress из любого состояния.
// rewarded_at не сбрасывается, поэтому повторный старт не даёт второй награды.
func (r *Repository) StartQuest(ctx context.Context, userID, questID uuid.UUID) (*UserQuest, error) {
	uq, err := scanUserQuest(r.db.QueryRow(ctx, `
		INSERT INTO user_quests AS uq (user_id, quest_id, status, started_at)
		VALUES ($1, $2, 'in_progress', NOW())
		ON CONFLICT (user_id, quest_id) DO UPDATE
		SET status = 'in_progress', started_at = NOW()
		RETURNING `+userQuestColumns,
		userID, questID,
	))
	if err != nil {
		return nil, common.Storage("ошибка старта квеста", err)
	}
	return uq, nil
}

// CompleteQuest завершает квест и начисляет награду одной транзакцией.
//
// Однократность обеспечивает условный upsert: строка обновляется, только
// если rewarded_at ещё пуст. Параллельный второй запрос ждёт блокировку
// строки, видит rewarded_at и получает common.ErrQuestAlreadyCompleted.
func (r *Repository) CompleteQuest(ctx context.Context, c Completion) (*users.User, *UserQuest, error) {
	var (
		user            *users.User
		uq              *UserQuest
		alreadyRewarded bool
	)
	err := postgres.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		uq, err = scanUserQuest(tx.QueryRow(ctx, `
			INSERT INTO user_quests AS uq (user_id, quest_id, status, started_at, completed_at, rewarded_at)
			VALUES ($1, $2, 'completed', NOW(), NOW(), NOW())
			ON CONFLICT (user_id, quest_id) DO UPDATE
			SET status = 'completed', completed_at = NOW(), rewarded_at = NOW()
			WHERE uq.rewarded_at IS NULL
			RETURNING `+userQuestColumns,
			c.UserID, c.QuestID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			// Награда уже выдана. Если квест перезапускали — возвращаем статус.
			alreadyRewarded = true
			_, err = tx.Exec(ctx, `
				UPDATE user_quests SET status = 'completed'
				WHERE user_id = $1 AND quest_id = $2 AND status <> 'completed'
			`, c.UserID, c.QuestID)
			return err
		}
		if err != nil {
			return err
		}

		user, err = users.CreditTx(ctx, tx, c.UserID, c.Credit)
		if err != nil {
			return err
		}

		if c.DailyDate != nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO daily_quest_completions (user_id, quest_id, date)
				VALUES ($1, $2, $3)
				ON CONFLICT (user_id, quest_id, date) DO NOTHING
			`, c.UserID, c.QuestID, *c.DailyDate)
			if err != nil {
				return fmt.Errorf("ошибка записи ежедневного квеста: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, common.Storage("ошибка завершения квеста", err)
	}
	if alreadyRewarded {
		return nil, nil, common.ErrQuestAlreadyCompleted
	}
	return user, uq, nil
}

// DailyQuests возвращает активные квесты дня на дату.
func (r *Repository) DailyQuests(ctx context.Context, date time.Time) ([]*DailyQuest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+dailyColumns+`, `+questColumns+`
		FROM daily_quests dq
		JOIN quests q ON dq.quest_id = q.id
		WHERE dq.date = $1 AND dq.is_active = TRUE
		ORDER BY q.order_index ASC
	`, date)
	if err != nil {
		return nil, common.Storage("ошибка получения квестов дня", err)
	}
	defer rows.Close()

	var list []*DailyQuest
	for rows.Next() {
		dq, err := scanDailyWithQuest(rows)
		if err != nil {
			return nil, common.Storage("ошибка чтения квеста дня", err)
		}
		list = append(list, dq)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("ошибка чтения квестов дня", err)
	}
	return list, nil
}

// DailyQuestFor возвращает активный квест дня для квеста на дату
// или nil, если квест в этот день не ежедневный.
func (r *Repository) DailyQuestFor(ctx context.Context, questID uuid.UUID, date time.Time) (*DailyQuest, error) {
	dq, err := scanDailyWithQuest(r.db.QueryRow(ctx, `
		SELECT `+dailyColumns+`, `+questColumns+`
		FROM daily_quests dq
		JOIN quests q ON dq.quest_id = q.id
		WHERE dq.quest_id = $1 AND dq.date = $2 AND dq.is_active = TRUE
	`, questID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, common.Storage("ошибка получения квеста дня", err)
	}
	return dq, nil
}

// UpsertDailyQuest делает квест ежедневным на дату. Повторный вызов
// обновляет множитель и включает запись.
func (r *Repository) UpsertDailyQuest(ctx context.Context, questID uuid.UUID, date time.Time, multiplier decimal.Decimal) (*DailyQuest, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO daily_quests (quest_id, date, multiplier)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (quest_id, date) DO UPDATE
		SET multiplier = EXCLUDED.multiplier, is_active = TRUE
		RETURNING id
	`, questID, date, multiplier.String()).Scan(&id)
	if err != nil {
		return nil, common.Storage("ошибка создания квеста дня", err)
	}

	dq, err := r.DailyQuestFor(ctx, questID, date)
	if err != nil {
		return nil, err
	}
	if dq == nil {
		return nil, common.Storage("ошибка создания квеста дня", fmt.Errorf("запись %s пропала", id))
	}
	return dq, nil
}

// DailyCompletionDates возвращает различные даты выполненных квестов дня,
// новые первыми, не больше limit.
func (r *Repository) DailyCompletionDates(ctx context.Context, userID uuid.UUID, limit int) ([]time.Time, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT date
		FROM daily_quest_completions
		WHERE user_id = $1
		ORDER BY date DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, common.Storage("ошибка получения серии квестов дня", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, common.Storage("ошибка чтения даты", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Storage("ошибка чтения дат", err)
	}
	return dates, nil
}
