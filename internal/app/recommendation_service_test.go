package app_test

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"internmatch-service/internal/app"
	"internmatch-service/internal/domain"
	"internmatch-service/internal/infra/memory"
	"internmatch-service/internal/trust"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestRecommendRanksVerifiedMatchFirst(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	// Verified "today" at full accuracy: trust = 0.7*1 + 0.3*1 = 1.
	mustSave(t, attempts, domain.VerificationAttempt{
		ID: "a1", CandidateID: "cand-1", SkillID: "python",
		Accuracy: 1.0, CompletedAt: testNow,
	})
	service := newTestRecommendation(attempts)

	recs, err := service.Recommend(ctx, "cand-1", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(recs))
	}
	if recs[0].InternshipID != "int-python" {
		t.Fatalf("expected python internship first, got %+v", recs)
	}
	// Identical term multisets and trust 1.0: final score ~ 1.
	if math.Abs(recs[0].Score-1.0) > 1e-9 {
		t.Fatalf("expected score ~1.0 for perfect match, got %v", recs[0].Score)
	}
	if recs[1].Score >= recs[0].Score {
		t.Fatalf("expected descending order, got %+v", recs)
	}
}

func TestRecommendUnverifiedOverlapGetsFloor(t *testing.T) {
	ctx := context.Background()
	// No attempts at all: every overlap is unverified.
	service := newTestRecommendation(memory.NewAttemptStore())

	breakdown, err := service.ScoreInternship(ctx, "cand-1", "int-python")
	if err != nil {
		t.Fatalf("score internship: %v", err)
	}
	if breakdown.TrustMultiplier != app.DefaultTrustFloor {
		t.Fatalf("expected floor multiplier %v, got %v", app.DefaultTrustFloor, breakdown.TrustMultiplier)
	}
	if breakdown.Score <= 0 {
		t.Fatalf("similarity-only match must still surface, got score %v", breakdown.Score)
	}
	if math.Abs(breakdown.Score-breakdown.Similarity*app.DefaultTrustFloor) > 1e-9 {
		t.Fatalf("expected score = similarity * floor, got %+v", breakdown)
	}
}

func TestRecommendTruncatesAndIsDeterministic(t *testing.T) {
	ctx := context.Background()
	service := newTestRecommendation(memory.NewAttemptStore())

	one, err := service.Recommend(ctx, "cand-1", 1)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(one))
	}

	first, _ := service.Recommend(ctx, "cand-1", 10)
	for i := 0; i < 10; i++ {
		again, err := service.Recommend(ctx, "cand-1", 10)
		if err != nil {
			t.Fatalf("recommend: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("ranking not stable: %+v vs %+v", first, again)
		}
	}
}

func TestRecommendZeroTopN(t *testing.T) {
	service := newTestRecommendation(memory.NewAttemptStore())
	recs, err := service.Recommend(context.Background(), "cand-1", 0)
	if err != nil {
		t.Fatalf("topN=0 must not fail: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty result, got %+v", recs)
	}
}

func TestRecommendEmptyCatalog(t *testing.T) {
	catalog := memory.NewCatalog(map[string]domain.CandidateProfile{
		"cand-1": {CandidateID: "cand-1"},
	}, nil)
	service := app.NewRecommendationServiceWithClock(
		catalog, catalog, memory.NewRatingLog(), memory.NewAttemptStore(),
		trust.DefaultConfig(), 0, func() time.Time { return testNow },
	)

	recs, err := service.Recommend(context.Background(), "cand-1", 10)
	if err != nil {
		t.Fatalf("empty catalog must not fail: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected empty result, got %+v", recs)
	}
}

func TestRecommendUnknownCandidate(t *testing.T) {
	service := newTestRecommendation(memory.NewAttemptStore())
	if _, err := service.Recommend(context.Background(), "nobody", 5); !errors.Is(err, domain.ErrUnknownCandidate) {
		t.Fatalf("expected ErrUnknownCandidate, got %v", err)
	}
}

func TestScoreInternshipUnknownInternship(t *testing.T) {
	service := newTestRecommendation(memory.NewAttemptStore())
	if _, err := service.ScoreInternship(context.Background(), "cand-1", "int-missing"); !errors.Is(err, domain.ErrUnknownInternship) {
		t.Fatalf("expected ErrUnknownInternship, got %v", err)
	}
}

func TestRecommendTieBreaksOnInternshipID(t *testing.T) {
	ctx := context.Background()
	// Two identical internships must come back in ID order.
	twin := func(id string) domain.Internship {
		return domain.Internship{
			ID: id, Title: "Python Backend", Company: "Dup",
			Description: "django services", SkillTags: []string{"Python"},
		}
	}
	catalog := memory.NewCatalog(map[string]domain.CandidateProfile{
		"cand-1": {
			CandidateID: "cand-1",
			Skills:      []domain.CandidateSkill{{SkillID: "python", Name: "Python", Context: "django"}},
		},
	}, []domain.Internship{twin("int-b"), twin("int-a")})
	service := app.NewRecommendationServiceWithClock(
		catalog, catalog, memory.NewRatingLog(), memory.NewAttemptStore(),
		trust.DefaultConfig(), 0, func() time.Time { return testNow },
	)

	recs, err := service.Recommend(ctx, "cand-1", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if recs[0].InternshipID != "int-a" || recs[1].InternshipID != "int-b" {
		t.Fatalf("expected ID-ordered tie-break, got %+v", recs)
	}
	if recs[0].Score != recs[1].Score {
		t.Fatalf("expected equal scores for twin internships, got %+v", recs)
	}
}

func TestTrustMultiplierAveragesVerifiedOverlap(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	mustSave(t, attempts, domain.VerificationAttempt{
		ID: "a1", CandidateID: "cand-1", SkillID: "python",
		Accuracy: 1.0, CompletedAt: testNow,
	})
	mustSave(t, attempts, domain.VerificationAttempt{
		ID: "a2", CandidateID: "cand-1", SkillID: "sql",
		Accuracy: 0.4, CompletedAt: testNow,
	})

	catalog := memory.NewCatalog(map[string]domain.CandidateProfile{
		"cand-1": {
			CandidateID: "cand-1",
			Skills: []domain.CandidateSkill{
				{SkillID: "python", Name: "Python"},
				{SkillID: "sql", Name: "SQL"},
			},
		},
	}, []domain.Internship{{
		ID: "int-1", Title: "Data Intern", Description: "python sql",
		SkillTags: []string{"Python", "SQL"},
	}})
	service := app.NewRecommendationServiceWithClock(
		catalog, catalog, memory.NewRatingLog(), attempts,
		trust.DefaultConfig(), 0, func() time.Time { return testNow },
	)

	breakdown, err := service.ScoreInternship(ctx, "cand-1", "int-1")
	if err != nil {
		t.Fatalf("score internship: %v", err)
	}
	// trust(python) = 0.7*1 + 0.3 = 1.0; trust(sql) = 0.7*0.4 + 0.3 = 0.58
	want := (1.0 + 0.58) / 2
	if math.Abs(breakdown.TrustMultiplier-want) > 1e-9 {
		t.Fatalf("expected averaged multiplier %v, got %v", want, breakdown.TrustMultiplier)
	}
}

func TestVerifiedSkills(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore()
	mustSave(t, attempts, domain.VerificationAttempt{
		ID: "a1", CandidateID: "cand-1", SkillID: "python",
		Accuracy: 0.8, CompletedAt: testNow,
	})
	mustSave(t, attempts, domain.VerificationAttempt{
		ID: "a2", CandidateID: "cand-1", SkillID: "javascript",
		Accuracy: 0.4, CompletedAt: testNow,
	})
	service := newTestRecommendation(attempts)

	verified, err := service.VerifiedSkills(ctx, "cand-1")
	if err != nil {
		t.Fatalf("verified skills: %v", err)
	}
	if len(verified) != 1 || verified[0].SkillID != "python" {
		t.Fatalf("expected only python verified, got %+v", verified)
	}
}

func newTestRecommendation(attempts *memory.AttemptStore) *app.RecommendationService {
	catalog := memory.NewCatalog(map[string]domain.CandidateProfile{
		"cand-1": {
			CandidateID: "cand-1",
			Skills: []domain.CandidateSkill{
				{SkillID: "python", Name: "Python", Context: "django rest"},
				{SkillID: "javascript", Name: "JavaScript"},
			},
		},
	}, []domain.Internship{
		{
			// Token multiset matches the candidate doc exactly.
			ID: "int-python", Title: "Django REST", Company: "",
			Description: "javascript", SkillTags: []string{"Python"},
		},
		{
			ID: "int-react", Title: "Frontend Intern", Company: "Initech",
			Description: "react components", SkillTags: []string{"React"},
		},
	})
	return app.NewRecommendationServiceWithClock(
		catalog, catalog, memory.NewRatingLog(), attempts,
		trust.DefaultConfig(), 0, func() time.Time { return testNow },
	)
}

func mustSave(t *testing.T, store *memory.AttemptStore, attempt domain.VerificationAttempt) {
	t.Helper()
	if err := store.Save(context.Background(), attempt); err != nil {
		t.Fatalf("save attempt: %v", err)
	}
}
