package memory

import (
	"context"
	"time"

	"serotonyl.ru/gaqt-backend/internal/features/admin"
)

// LogAttempt записывает попытку входа в админку.
func (s *Store) LogAttempt(_ context.Context, clientKey string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = append(s.attempts, admin.LoginAttempt{
		ID:          s.nextSeq(),
		ClientKey:   clientKey,
		AttemptTime: s.now(),
		Success:     success,
	})
	return nil
}

// RecentFailures считает неудачные попытки clientKey начиная с since.
func (s *Store) RecentFailures(_ context.Context, clientKey string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, a := range s.attempts {
		if a.ClientKey == clientKey && !a.Success && !a.AttemptTime.Before(since) {
			count++
		}
	}
	return count, nil
}
