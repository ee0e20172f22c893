package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"internmatch-service/internal/domain"
)

// AttemptStore persists finalized attempts in Redis. Attempts are
// append-only; a sorted set scored by completion time makes the
// latest-wins read a ZREVRANGE:
//
//	HSET verify:attempts:{cand}:{skill}        {attemptID} {json}
//	ZADD verify:attempts:{cand}:{skill}:bytime {completedAtUnixNano} {attemptID}
type AttemptStore struct {
	client *redis.Client
}

func NewAttemptStore(client *redis.Client) *AttemptStore {
	return &AttemptStore{client: client}
}

func (s *AttemptStore) Save(ctx context.Context, attempt domain.VerificationAttempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}

	hashKey := s.hashKey(attempt.CandidateID, attempt.SkillID)
	timeKey := s.timeKey(attempt.CandidateID, attempt.SkillID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, hashKey, attempt.ID, raw)
	pipe.ZAdd(ctx, timeKey, redis.Z{
		Score:  float64(attempt.CompletedAt.UnixNano()),
		Member: attempt.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (s *AttemptStore) Latest(ctx context.Context, candidateID, skillID string) (*domain.VerificationAttempt, error) {
	ids, err := s.client.ZRevRange(ctx, s.timeKey(candidateID, skillID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("latest attempt: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := s.client.HGet(ctx, s.hashKey(candidateID, skillID), ids[0]).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}

	var attempt domain.VerificationAttempt
	if err := json.Unmarshal(raw, &attempt); err != nil {
		return nil, fmt.Errorf("unmarshal attempt: %w", err)
	}
	return &attempt, nil
}

// History returns every finalized attempt for the pair, oldest first.
func (s *AttemptStore) History(ctx context.Context, candidateID, skillID string) ([]domain.VerificationAttempt, error) {
	ids, err := s.client.ZRange(ctx, s.timeKey(candidateID, skillID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("attempt history: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	out := make([]domain.VerificationAttempt, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.HGet(ctx, s.hashKey(candidateID, skillID), id).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load attempt %s: %w", id, err)
		}
		var attempt domain.VerificationAttempt
		if err := json.Unmarshal(raw, &attempt); err != nil {
			return nil, fmt.Errorf("unmarshal attempt %s: %w", id, err)
		}
		out = append(out, attempt)
	}
	return out, nil
}

func (s *AttemptStore) hashKey(candidateID, skillID string) string {
	return "verify:attempts:" + candidateID + ":" + skillID
}

func (s *AttemptStore) timeKey(candidateID, skillID string) string {
	return "verify:attempts:" + candidateID + ":" + skillID + ":bytime"
}
