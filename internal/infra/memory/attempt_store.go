package memory

import (
	"context"
	"sync"

	"internmatch-service/internal/domain"
)

// AttemptStore keeps finalized attempts as an append-only log per
// (candidate, skill). Reads follow the latest-wins rule: the attempt
// with the newest CompletedAt is authoritative, so two sessions for the
// same skill finalizing concurrently never need locking beyond the map.
type AttemptStore struct {
	mu       sync.RWMutex
	attempts map[attemptKey][]domain.VerificationAttempt
}

type attemptKey struct {
	candidateID string
	skillID     string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[attemptKey][]domain.VerificationAttempt),
	}
}

func (s *AttemptStore) Save(_ context.Context, attempt domain.VerificationAttempt) error {
	key := attemptKey{candidateID: attempt.CandidateID, skillID: attempt.SkillID}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[key] = append(s.attempts[key], attempt)
	return nil
}

func (s *AttemptStore) Latest(_ context.Context, candidateID, skillID string) (*domain.VerificationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.attempts[attemptKey{candidateID: candidateID, skillID: skillID}]
	if len(log) == 0 {
		return nil, nil
	}
	latest := log[0]
	for _, attempt := range log[1:] {
		if attempt.CompletedAt.After(latest.CompletedAt) {
			latest = attempt
		}
	}
	return &latest, nil
}

// History returns every finalized attempt for the pair, oldest first.
func (s *AttemptStore) History(_ context.Context, candidateID, skillID string) ([]domain.VerificationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.attempts[attemptKey{candidateID: candidateID, skillID: skillID}]
	out := make([]domain.VerificationAttempt, len(log))
	copy(out, log)
	return out, nil
}
