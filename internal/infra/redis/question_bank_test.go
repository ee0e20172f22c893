package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"internmatch-service/internal/domain"
	"internmatch-service/internal/infra/memory"
)

func TestQuestionBankCachesPool(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	loader := &countingLoader{
		loader: memory.NewStaticBankLoader(map[string]domain.SkillBank{"go": sampleBank()}),
	}
	bank := NewQuestionBank(client, loader, 5*time.Minute)

	_, questions, err := bank.BuildQuiz(ctx, "go")
	if err != nil {
		t.Fatalf("build quiz: %v", err)
	}
	if len(questions) != domain.QuestionsPerSession {
		t.Fatalf("expected %d questions, got %d", domain.QuestionsPerSession, len(questions))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
	if !mr.Exists("verify:bank:go") {
		t.Fatalf("expected pool cached in redis")
	}

	if _, _, err := bank.BuildQuiz(ctx, "go"); err != nil {
		t.Fatalf("build quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionBankRejectsThinPool(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	thin := sampleBank()
	thin.Questions = thin.Questions[:3]
	loader := memory.NewStaticBankLoader(map[string]domain.SkillBank{"go": thin})
	bank := NewQuestionBank(client, loader, 5*time.Minute)

	if _, _, err := bank.BuildQuiz(context.Background(), "go"); !errors.Is(err, domain.ErrEmptyBank) {
		t.Fatalf("expected ErrEmptyBank for a pool of 3, got %v", err)
	}
}

type countingLoader struct {
	loader memory.BankLoader
	calls  int
}

func (l *countingLoader) LoadBank(ctx context.Context, skillID string) (domain.SkillBank, error) {
	l.calls++
	return l.loader.LoadBank(ctx, skillID)
}

func sampleBank() domain.SkillBank {
	bank := domain.SkillBank{
		Skill: domain.Skill{ID: "go", Name: "Go", Tier: domain.DifficultyEasy},
	}
	for _, id := range []string{"q1", "q2", "q3", "q4"} {
		bank.Questions = append(bank.Questions, domain.Question{
			ID: id, SkillID: "go", Difficulty: domain.DifficultyEasy,
			Options: []domain.Option{{ID: "o1", Text: "right", Correct: true}},
		})
	}
	for _, id := range []string{"q5", "q6"} {
		bank.Questions = append(bank.Questions, domain.Question{
			ID: id, SkillID: "go", Difficulty: domain.DifficultyTough,
			Options: []domain.Option{{ID: "o1", Text: "right", Correct: true}},
		})
	}
	return bank
}
