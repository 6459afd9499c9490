package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"serotonyl.ru/gaqt-backend/internal/common"
	"serotonyl.ru/gaqt-backend/internal/features/progress"
	"serotonyl.ru/gaqt-backend/internal/features/referrals"
)

// ApplyReferral применяет реферальный код. Один приглашённый — один реферал.
func (s *Store) ApplyReferral(_ context.Context, code string, referredID uuid.UUID, bonus progress.Credit) (*referrals.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referrerID, ok := s.byCode[code]
	if !ok {
		return nil, common.ErrReferralCodeNotFound
	}
	if referrerID == referredID {
		return nil, common.ErrSelfReferral
	}
	if _, err := s.userLocked(referredID); err != nil {
		return nil, err
	}
	if _, exists := s.referrals[referredID]; exists {
		return nil, common.ErrAlreadyReferred
	}

	ref := &referrals.Referral{
		ID:            uuid.New(),
		ReferrerID:    referrerID,
		ReferredID:    referredID,
		ReferralCode:  code,
		RewardClaimed: true,
		CreatedAt:     s.now(),
	}
	s.referrals[referredID] = ref

	s.users[referrerID].user.ReferralCount++
	referrer, err := s.creditLocked(referrerID, bonus)
	if err != nil {
		return nil, err
	}
	referred, err := s.creditLocked(referredID, bonus)
	if err != nil {
		return nil, err
	}

	stored := *ref
	return &referrals.Result{
		Referral: &stored,
		Referrer: cloneUser(referrer),
		Referred: cloneUser(referred),
	}, nil
}

// ReferralsOf возвращает приглашённых пользователем, новые первыми.
func (s *Store) ReferralsOf(_ context.Context, userID uuid.UUID) ([]*referrals.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type ordered struct {
		entry *referrals.Entry
		seq   int64
	}
	var rows []ordered
	for _, ref := range s.referrals {
		if ref.ReferrerID != userID {
			continue
		}
		row := s.users[ref.ReferredID]
		rows = append(rows, ordered{
			entry: &referrals.Entry{
				Referral:  *ref,
				Username:  row.user.Username,
				FirstName: row.user.FirstName,
				Points:    row.user.Points,
			},
			seq: row.seq,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i].entry.CreatedAt, rows[j].entry.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return rows[i].seq > rows[j].seq
	})

	list := make([]*referrals.Entry, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.entry)
	}
	return list, nil
}
