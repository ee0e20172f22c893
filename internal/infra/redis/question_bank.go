package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"internmatch-service/internal/domain"
	"internmatch-service/internal/infra/memory"
)

// QuestionBank caches skill banks in Redis as JSON blobs and falls back
// to a loader on cache miss:
//
//	SET verify:bank:{skillID} {json} EX {ttl}
//
// Selection happens in-process on top of the cached pool.
type QuestionBank struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) BuildQuiz(ctx context.Context, skillID string) (domain.Skill, []domain.Question, error) {
	bank, err := b.getBank(ctx, skillID)
	if err != nil {
		return domain.Skill{}, nil, err
	}
	if len(bank.Questions) < domain.QuestionsPerSession {
		return domain.Skill{}, nil, domain.ErrEmptyBank
	}

	b.mu.Lock()
	questions := memory.PickQuestions(bank, domain.QuestionsPerSession, b.rnd)
	b.mu.Unlock()
	return bank.Skill, questions, nil
}

func (b *QuestionBank) getBank(ctx context.Context, skillID string) (domain.SkillBank, error) {
	key := b.key(skillID)

	if raw, err := b.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var bank domain.SkillBank
		if err := json.Unmarshal(raw, &bank); err == nil {
			return bank, nil
		}
	}

	result, err, _ := b.sf.Do(skillID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := b.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var bank domain.SkillBank
			if err := json.Unmarshal(raw, &bank); err == nil {
				return bank, nil
			}
		}

		bank, err := b.loader.LoadBank(ctx, skillID)
		if err != nil {
			return domain.SkillBank{}, err
		}

		raw, err := json.Marshal(bank)
		if err != nil {
			return domain.SkillBank{}, fmt.Errorf("marshal bank: %w", err)
		}
		// best-effort cache fill
		_ = b.client.Set(ctx, key, raw, b.ttlWithJitter()).Err()
		return bank, nil
	})
	if err != nil {
		return domain.SkillBank{}, err
	}
	return result.(domain.SkillBank), nil
}

func (b *QuestionBank) key(skillID string) string {
	return "verify:bank:" + skillID
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
