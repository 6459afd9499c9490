// Package memory — хранилище в памяти процесса. Реализует все Store
// фич и повторяет гарантии Postgres-репозиториев: уникальность
// telegram_id и реферальных кодов, однократное начисление за квест,
// реферал и достижение. Используется в тестах и при DB_DRIVER=memory.
//
// Все операции выполняются под одним мьютексом, поэтому каждая из них
// атомарна так же, как транзакция в Postgres.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/gaqt-backend/internal/features/achievements"
	"serotonyl.ru/gaqt-backend/internal/features/admin"
	"serotonyl.ru/gaqt-backend/internal/features/leaderboard"
	"serotonyl.ru/gaqt-backend/internal/features/quests"
	"serotonyl.ru/gaqt-backend/internal/features/referrals"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

var (
	_ users.Store        = (*Store)(nil)
	_ quests.Store       = (*Store)(nil)
	_ quests.Seeder      = (*Store)(nil)
	_ referrals.Store    = (*Store)(nil)
	_ achievements.Store = (*Store)(nil)
	_ leaderboard.Store  = (*Store)(nil)
	_ admin.Store        = (*Store)(nil)
)

type pairKey struct {
	userID  uuid.UUID
	otherID uuid.UUID
}

type dailyKey struct {
	questID uuid.UUID
	date    string
}

type completionKey struct {
	userID  uuid.UUID
	questID uuid.UUID
	date    string
}

type achievementKey struct {
	userID uuid.UUID
	kind   string
}

// userRow — пользователь и порядок вставки (для стабильной сортировки).
type userRow struct {
	user *users.User
	seq  int64
}

type achievementRow struct {
	a   *achievements.UserAchievement
	seq int64
}

// Store — хранилище в памяти.
type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq int64

	users      map[uuid.UUID]*userRow
	byTelegram map[int64]uuid.UUID
	byCode     map[string]uuid.UUID

	quests     map[uuid.UUID]*quests.Quest
	userQuests map[pairKey]*quests.UserQuest
	daily      map[dailyKey]*quests.DailyQuest
	dailyDone  map[completionKey]time.Time

	referrals    map[uuid.UUID]*referrals.Referral
	achievements map[achievementKey]*achievementRow
	attempts     []admin.LoginAttempt
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		now:          time.Now,
		users:        make(map[uuid.UUID]*userRow),
		byTelegram:   make(map[int64]uuid.UUID),
		byCode:       make(map[string]uuid.UUID),
		quests:       make(map[uuid.UUID]*quests.Quest),
		userQuests:   make(map[pairKey]*quests.UserQuest),
		daily:        make(map[dailyKey]*quests.DailyQuest),
		dailyDone:    make(map[completionKey]time.Time),
		referrals:    make(map[uuid.UUID]*referrals.Referral),
		achievements: make(map[achievementKey]*achievementRow),
	}
}

// WithClock подменяет часы.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// nextSeq возвращает следующий порядковый номер вставки. Вызывается под мьютексом.
func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func cloneUser(u *users.User) *users.User {
	c := *u
	return &c
}

func cloneQuest(q *quests.Quest) *quests.Quest {
	c := *q
	return &c
}

func cloneUserQuest(uq *quests.UserQuest) *quests.UserQuest {
	c := *uq
	c.Quest = nil
	return &c
}

func timePtr(t time.Time) *time.Time {
	return &t
}
