package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/users"
)

// UserByTelegramID ищет пользователя по Telegram ID.
func (s *Store) UserByTelegramID(_ context.Context, telegramID int64) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byTelegram[telegramID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return cloneUser(s.users[id].user), nil
}

// UserByID ищет пользователя по ID.
func (s *Store) UserByID(_ context.Context, id uuid.UUID) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.userLocked(id)
	if err != nil {
		return nil, err
	}
	return cloneUser(u), nil
}

// UpsertUser создаёт пользователя или обновляет профиль существующего.
func (s *Store) UpsertUser(_ context.Context, p users.Profile, referralCode string, startEnergy int) (*users.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id, ok := s.byTelegram[p.TelegramID]; ok {
		u := s.users[id].user
		u.Username = p.Username
		u.FirstName = p.FirstName
		u.LastName = p.LastName
		u.PhotoURL = p.PhotoURL
		u.UpdatedAt = now
		return cloneUser(u), false, nil
	}

	if _, taken := s.byCode[referralCode]; taken {
		return nil, false, users.ErrReferralCodeTaken
	}

	u := &users.User{
		ID:           uuid.New(),
		TelegramID:   p.TelegramID,
		Username:     p.Username,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PhotoURL:     p.PhotoURL,
		Energy:       progress.ClampEnergy(startEnergy),
		Level:        progress.LevelFor(0),
		ReferralCode: referralCode,
		LastSync:     now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = &userRow{user: u, seq: s.nextSeq()}
	s.byTelegram[u.TelegramID] = u.ID
	s.byCode[u.ReferralCode] = u.ID
	return cloneUser(u), true, nil
}

// UpdateProgress применяет синхронизацию прогресса.
func (s *Store) UpdateProgress(_ context.Context, id uuid.UUID, upd users.ProgressUpdate) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.userLocked(id)
	if err != nil {
		return nil, err
	}
	u.ApplySync(upd)
	u.LastSync = s.now()
	u.UpdatedAt = u.LastSync
	return cloneUser(u), nil
}

// SetWallet привязывает кошелёк.
func (s *Store) SetWallet(_ context.Context, id uuid.UUID, address string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.userLocked(id)
	if err != nil {
		return nil, err
	}
	u.TonWallet = &address
	u.UpdatedAt = s.now()
	return cloneUser(u), nil
}

// RegenerateEnergy начисляет энергию тем, кто ниже потолка и давно не синхронизировался.
func (s *Store) RegenerateEnergy(_ context.Context, amount int, staleBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var affected int64
	for _, row := range s.users {
		u := row.user
		if u.Energy >= progress.MaxEnergy || !u.LastSync.Before(staleBefore) {
			continue
		}
		u.Energy = progress.ClampEnergy(u.Energy + amount)
		u.LastSync = now
		u.UpdatedAt = now
		affected++
	}
	return affected, nil
}

// TopUsersByPoints возвращает лидеров: очки по убыванию, затем более ранняя регистрация.
func (s *Store) TopUsersByPoints(_ context.Context, limit int) ([]*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]*userRow, 0, len(s.users))
	for _, row := range s.users {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].user, rows[j].user
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	list := make([]*users.User, 0, len(rows))
	for _, row := range rows {
		list = append(list, cloneUser(row.user))
	}
	return list, nil
}

// userLocked возвращает живую запись пользователя. Вызывается под мьютексом.
func (s *Store) userLocked(id uuid.UUID) (*users.User, error) {
	row, ok := s.users[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return row.user, nil
}

// creditLocked начисляет награду. Вызывается под мьютексом.
func (s *Store) creditLocked(id uuid.UUID, c progress.Credit) (*users.User, error) {
	u, err := s.userLocked(id)
	if err != nil {
		return nil, err
	}
	u.Credit(c)
	u.UpdatedAt = s.now()
	return u, nil
}
