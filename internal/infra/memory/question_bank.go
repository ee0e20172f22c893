package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"internmatch-service/internal/domain"
)

// BankLoader fetches a skill's full question pool from a backing store.
type BankLoader interface {
	LoadBank(ctx context.Context, skillID string) (domain.SkillBank, error)
}

// QuestionBank caches skill banks with TTL and selects quizzes from
// them. The difficulty mix leans toward the skill's configured tier:
// tough-tier skills aim for 3 tough + 2 easy, everything else 2 tough +
// 3 easy, backfilling from the other tier when one runs short. A pool
// that cannot fill a whole quiz is rejected, never shortened: accuracy
// is always scored out of the full quiz size.
type QuestionBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.SkillBank
	expiresAt time.Time
}

func NewQuestionBank(loader BankLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

// NewQuestionBankWithRand is test-only for deterministic quiz selection.
func NewQuestionBankWithRand(loader BankLoader, ttl time.Duration, rnd *rand.Rand) *QuestionBank {
	b := NewQuestionBank(loader, ttl)
	if rnd != nil {
		b.rnd = rnd
	}
	return b
}

// BuildQuiz returns the skill plus exactly QuestionsPerSession distinct
// questions, or ErrEmptyBank when the pool holds fewer than that.
func (b *QuestionBank) BuildQuiz(ctx context.Context, skillID string) (domain.Skill, []domain.Question, error) {
	bank, err := b.getBank(ctx, skillID)
	if err != nil {
		return domain.Skill{}, nil, err
	}
	if len(bank.Questions) < domain.QuestionsPerSession {
		return domain.Skill{}, nil, domain.ErrEmptyBank
	}

	b.mu.Lock()
	questions := PickQuestions(bank, domain.QuestionsPerSession, b.rnd)
	b.mu.Unlock()
	return bank.Skill, questions, nil
}

func (b *QuestionBank) getBank(ctx context.Context, skillID string) (domain.SkillBank, error) {
	now := b.clock()

	b.mu.Lock()
	if entry, ok := b.cache[skillID]; ok && entry.expiresAt.After(now) {
		b.mu.Unlock()
		return entry.bank, nil
	}
	b.mu.Unlock()

	result, err, _ := b.sf.Do(skillID, func() (interface{}, error) {
		now := b.clock()
		b.mu.Lock()
		if entry, ok := b.cache[skillID]; ok && entry.expiresAt.After(now) {
			b.mu.Unlock()
			return entry.bank, nil
		}
		b.mu.Unlock()

		bank, err := b.loader.LoadBank(ctx, skillID)
		if err != nil {
			return domain.SkillBank{}, err
		}

		ttl := b.ttlWithJitter()
		b.mu.Lock()
		b.cache[skillID] = cachedBank{bank: bank, expiresAt: now.Add(ttl)}
		b.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.SkillBank{}, err
	}
	return result.(domain.SkillBank), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// PickQuestions draws count distinct questions from the bank, weighted
// toward the skill's tier. Shared by the memory and Redis banks.
func PickQuestions(bank domain.SkillBank, count int, rnd *rand.Rand) []domain.Question {
	tough := make([]domain.Question, 0, len(bank.Questions))
	easy := make([]domain.Question, 0, len(bank.Questions))
	for _, q := range bank.Questions {
		if q.Difficulty == domain.DifficultyTough {
			tough = append(tough, q)
		} else {
			easy = append(easy, q)
		}
	}
	shuffle(tough, rnd)
	shuffle(easy, rnd)

	toughAim := 2
	if bank.Skill.Tier == domain.DifficultyTough {
		toughAim = 3
	}
	if toughAim > count {
		toughAim = count
	}

	picked := make([]domain.Question, 0, count)
	picked = append(picked, take(tough, toughAim)...)
	picked = append(picked, take(easy, count-len(picked))...)

	// Backfill from whichever tier still has spares.
	if len(picked) < count {
		picked = append(picked, take(tough[min(len(tough), toughAim):], count-len(picked))...)
	}
	if len(picked) > count {
		picked = picked[:count]
	}
	return picked
}

func shuffle(qs []domain.Question, rnd *rand.Rand) {
	rnd.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

func take(qs []domain.Question, n int) []domain.Question {
	if n <= 0 {
		return nil
	}
	if n > len(qs) {
		n = len(qs)
	}
	return qs[:n]
}

// StaticBankLoader is a map-backed loader useful for tests/demos.
type StaticBankLoader struct {
	banks map[string]domain.SkillBank
}

func NewStaticBankLoader(banks map[string]domain.SkillBank) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, skillID string) (domain.SkillBank, error) {
	if bank, ok := l.banks[skillID]; ok {
		return bank, nil
	}
	return domain.SkillBank{}, domain.ErrUnknownSkill
}
