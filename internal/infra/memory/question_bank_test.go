package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"internmatch-service/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string]domain.SkillBank{"go": sampleBank(5, 3)}),
	}
	bank := NewQuestionBankWithRand(loader, time.Minute, rand.New(rand.NewSource(1)))

	if _, _, err := bank.BuildQuiz(context.Background(), "go"); err != nil {
		t.Fatalf("build quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, _, err := bank.BuildQuiz(context.Background(), "go"); err != nil {
		t.Fatalf("build quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionBankUnknownSkill(t *testing.T) {
	bank := NewQuestionBank(NewStaticBankLoader(nil), time.Minute)
	if _, _, err := bank.BuildQuiz(context.Background(), "rust"); !errors.Is(err, domain.ErrUnknownSkill) {
		t.Fatalf("expected ErrUnknownSkill, got %v", err)
	}
}

func TestPickQuestionsMixesDifficulty(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	picked := PickQuestions(sampleBank(6, 4), domain.QuestionsPerSession, rnd)
	if len(picked) != domain.QuestionsPerSession {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerSession, len(picked))
	}
	if got := countTier(picked, domain.DifficultyTough); got != 2 {
		t.Fatalf("easy-tier skill should aim 2 tough, got %d", got)
	}
	assertDistinct(t, picked)

	toughBank := sampleBank(6, 4)
	toughBank.Skill.Tier = domain.DifficultyTough
	picked = PickQuestions(toughBank, domain.QuestionsPerSession, rnd)
	if got := countTier(picked, domain.DifficultyTough); got != 3 {
		t.Fatalf("tough-tier skill should aim 3 tough, got %d", got)
	}
	assertDistinct(t, picked)
}

func TestPickQuestionsBackfillsThinTiers(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	// No tough questions at all: fill entirely from easy.
	picked := PickQuestions(sampleBank(7, 0), domain.QuestionsPerSession, rnd)
	if len(picked) != domain.QuestionsPerSession {
		t.Fatalf("expected full quiz from easy pool, got %d", len(picked))
	}
	assertDistinct(t, picked)

	// Not enough easy: top up from the tough spares.
	picked = PickQuestions(sampleBank(1, 6), domain.QuestionsPerSession, rnd)
	if len(picked) != domain.QuestionsPerSession {
		t.Fatalf("expected full quiz via backfill, got %d", len(picked))
	}
	assertDistinct(t, picked)
}

func TestBuildQuizRejectsThinPool(t *testing.T) {
	loader := NewStaticBankLoader(map[string]domain.SkillBank{"go": sampleBank(2, 1)})
	bank := NewQuestionBankWithRand(loader, time.Minute, rand.New(rand.NewSource(1)))

	_, questions, err := bank.BuildQuiz(context.Background(), "go")
	if !errors.Is(err, domain.ErrEmptyBank) {
		t.Fatalf("expected ErrEmptyBank for a pool of 3, got %v", err)
	}
	if questions != nil {
		t.Fatalf("expected no questions alongside the error, got %d", len(questions))
	}
}

func countTier(qs []domain.Question, tier domain.Difficulty) int {
	n := 0
	for _, q := range qs {
		if q.Difficulty == tier {
			n++
		}
	}
	return n
}

func assertDistinct(t *testing.T, qs []domain.Question) {
	t.Helper()
	seen := make(map[string]struct{})
	for _, q := range qs {
		if _, dup := seen[q.ID]; dup {
			t.Fatalf("duplicate question %s", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
}

type countingLoader struct {
	BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, skillID string) (domain.SkillBank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, skillID)
}

func sampleBank(easy, tough int) domain.SkillBank {
	bank := domain.SkillBank{
		Skill: domain.Skill{ID: "go", Name: "Go", Tier: domain.DifficultyEasy},
	}
	for i := 0; i < easy; i++ {
		bank.Questions = append(bank.Questions, domain.Question{
			ID: fmt.Sprintf("easy-%d", i), SkillID: "go", Difficulty: domain.DifficultyEasy,
			Options: []domain.Option{{ID: "o1", Text: "right", Correct: true}},
		})
	}
	for i := 0; i < tough; i++ {
		bank.Questions = append(bank.Questions, domain.Question{
			ID: fmt.Sprintf("tough-%d", i), SkillID: "go", Difficulty: domain.DifficultyTough,
			Options: []domain.Option{{ID: "o1", Text: "right", Correct: true}},
		})
	}
	return bank
}
