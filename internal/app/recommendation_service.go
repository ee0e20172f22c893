package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"internmatch-service/internal/domain"
	"internmatch-service/internal/rank"
	"internmatch-service/internal/trust"
)

// DefaultTrustFloor discounts internships the candidate has no verified
// overlapping skill for, without excluding them from results.
const DefaultTrustFloor = 0.5

// verifiedAccuracyThreshold is the minimum accuracy for an attempt to
// count a skill as verified on the candidate's public profile.
const verifiedAccuracyThreshold = 0.6

// CandidateDirectory resolves candidate profile snapshots.
type CandidateDirectory interface {
	Profile(ctx context.Context, candidateID string) (domain.CandidateProfile, error)
}

// InternshipCatalog resolves the eligible internship pool. Filtering
// (open, not expired, not applied-to) is the catalog's concern; the
// ranker scores whatever pool it is handed.
type InternshipCatalog interface {
	OpenInternships(ctx context.Context) ([]domain.Internship, error)
	Internship(ctx context.Context, internshipID string) (domain.Internship, error)
}

// RatingSource serves recruiter rating aggregates per candidate-skill.
type RatingSource interface {
	Aggregate(ctx context.Context, candidateID, skillID string) (domain.RatingAggregate, error)
}

// RecommendationService ranks open internships for a candidate by
// trust-weighted textual similarity.
type RecommendationService struct {
	candidates CandidateDirectory
	catalog    InternshipCatalog
	ratings    RatingSource
	attempts   AttemptStore
	trustCfg   trust.Config
	trustFloor float64
	now        func() time.Time
}

func NewRecommendationService(candidates CandidateDirectory, catalog InternshipCatalog, ratings RatingSource, attempts AttemptStore, trustCfg trust.Config, trustFloor float64) *RecommendationService {
	if trustFloor <= 0 {
		trustFloor = DefaultTrustFloor
	}
	return &RecommendationService{
		candidates: candidates,
		catalog:    catalog,
		ratings:    ratings,
		attempts:   attempts,
		trustCfg:   trustCfg,
		trustFloor: trustFloor,
		now:        time.Now,
	}
}

// NewRecommendationServiceWithClock is test-only for deterministic trust recency.
func NewRecommendationServiceWithClock(candidates CandidateDirectory, catalog InternshipCatalog, ratings RatingSource, attempts AttemptStore, trustCfg trust.Config, trustFloor float64, now func() time.Time) *RecommendationService {
	s := NewRecommendationService(candidates, catalog, ratings, attempts, trustCfg, trustFloor)
	if now != nil {
		s.now = now
	}
	return s
}

// Recommend returns at most topN internships ranked by finalScore =
// similarity x trust multiplier, descending, with internship ID as the
// tie-break so repeated calls over unchanged inputs agree byte for
// byte. topN <= 0 and an empty catalog both yield an empty list.
func (s *RecommendationService) Recommend(ctx context.Context, candidateID string, topN int) ([]domain.Recommendation, error) {
	if topN <= 0 {
		return []domain.Recommendation{}, nil
	}

	profile, err := s.candidates.Profile(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	pool, err := s.catalog.OpenInternships(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return []domain.Recommendation{}, nil
	}

	breakdowns, err := s.scorePool(ctx, profile, pool)
	if err != nil {
		return nil, err
	}

	sort.Slice(breakdowns, func(i, j int) bool {
		if breakdowns[i].Score != breakdowns[j].Score {
			return breakdowns[i].Score > breakdowns[j].Score
		}
		return breakdowns[i].InternshipID < breakdowns[j].InternshipID
	})

	if topN > len(breakdowns) {
		topN = len(breakdowns)
	}
	out := make([]domain.Recommendation, 0, topN)
	for _, b := range breakdowns[:topN] {
		out = append(out, domain.Recommendation{InternshipID: b.InternshipID, Score: b.Score})
	}
	return out, nil
}

// ScoreInternship explains how one (candidate, internship) pair scores.
// The internship is scored against the full open pool so term weights
// match what Recommend would use.
func (s *RecommendationService) ScoreInternship(ctx context.Context, candidateID, internshipID string) (domain.MatchBreakdown, error) {
	profile, err := s.candidates.Profile(ctx, candidateID)
	if err != nil {
		return domain.MatchBreakdown{}, err
	}
	pool, err := s.catalog.OpenInternships(ctx)
	if err != nil {
		return domain.MatchBreakdown{}, err
	}
	found := false
	for _, in := range pool {
		if in.ID == internshipID {
			found = true
			break
		}
	}
	if !found {
		internship, err := s.catalog.Internship(ctx, internshipID)
		if err != nil {
			return domain.MatchBreakdown{}, err
		}
		pool = append(pool, internship)
	}

	breakdowns, err := s.scorePool(ctx, profile, pool)
	if err != nil {
		return domain.MatchBreakdown{}, err
	}
	for _, b := range breakdowns {
		if b.InternshipID == internshipID {
			return b, nil
		}
	}
	return domain.MatchBreakdown{}, domain.ErrUnknownInternship
}

// VerifiedSkills lists the candidate's skills whose latest attempt
// cleared the verification bar.
func (s *RecommendationService) VerifiedSkills(ctx context.Context, candidateID string) ([]domain.CandidateSkill, error) {
	profile, err := s.candidates.Profile(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	verified := make([]domain.CandidateSkill, 0, len(profile.Skills))
	for _, skill := range profile.Skills {
		attempt, err := s.attempts.Latest(ctx, candidateID, skill.SkillID)
		if err != nil {
			return nil, err
		}
		if attempt != nil && attempt.Accuracy >= verifiedAccuracyThreshold {
			verified = append(verified, skill)
		}
	}
	return verified, nil
}

// scorePool vectorizes the candidate against the pool and scores every
// internship. The TF-IDF vocabulary is scoped to this call on purpose:
// there is no cross-request cache to go stale.
func (s *RecommendationService) scorePool(ctx context.Context, profile domain.CandidateProfile, pool []domain.Internship) ([]domain.MatchBreakdown, error) {
	docs := make([][]string, 0, len(pool)+1)
	docs = append(docs, candidateTokens(profile))
	for _, internship := range pool {
		docs = append(docs, internshipTokens(internship))
	}
	vectors := rank.Vectorize(docs)
	candidateVec := vectors[0]

	trustBySkill, err := s.trustBySkill(ctx, profile)
	if err != nil {
		return nil, err
	}

	breakdowns := make([]domain.MatchBreakdown, 0, len(pool))
	for i, internship := range pool {
		similarity := rank.Cosine(candidateVec, vectors[i+1])
		multiplier := s.trustMultiplier(profile, internship, trustBySkill)
		breakdowns = append(breakdowns, domain.MatchBreakdown{
			InternshipID:    internship.ID,
			Similarity:      similarity,
			TrustMultiplier: multiplier,
			Score:           similarity * multiplier,
		})
	}
	return breakdowns, nil
}

// trustBySkill computes the trust score of every verified candidate
// skill once per request. Skills with no attempt are absent from the
// map, which is what routes them to the floor multiplier.
func (s *RecommendationService) trustBySkill(ctx context.Context, profile domain.CandidateProfile) (map[string]float64, error) {
	now := s.now()
	out := make(map[string]float64, len(profile.Skills))
	for _, skill := range profile.Skills {
		attempt, err := s.attempts.Latest(ctx, profile.CandidateID, skill.SkillID)
		if err != nil {
			return nil, err
		}
		if attempt == nil {
			continue
		}
		rating, err := s.ratings.Aggregate(ctx, profile.CandidateID, skill.SkillID)
		if err != nil {
			return nil, err
		}
		out[skill.SkillID] = trust.Score(attempt, rating, now, s.trustCfg)
	}
	return out, nil
}

// trustMultiplier averages the trust of verified candidate skills that
// intersect the internship's tags, falling back to the floor when none
// intersect. Average was chosen over max so one strong skill cannot
// mask several weak required ones.
func (s *RecommendationService) trustMultiplier(profile domain.CandidateProfile, internship domain.Internship, trustBySkill map[string]float64) float64 {
	tags := make(map[string]struct{}, len(internship.SkillTags))
	for _, tag := range internship.SkillTags {
		if normalized := rank.Normalize(tag); normalized != "" {
			tags[normalized] = struct{}{}
		}
	}

	sum := 0.0
	n := 0
	for _, skill := range profile.Skills {
		if _, overlaps := tags[rank.Normalize(skill.Name)]; !overlaps {
			continue
		}
		score, verified := trustBySkill[skill.SkillID]
		if !verified {
			continue
		}
		sum += score
		n++
	}
	if n == 0 {
		return s.trustFloor
	}
	return sum / float64(n)
}

func candidateTokens(profile domain.CandidateProfile) []string {
	var parts []string
	for _, skill := range profile.Skills {
		parts = append(parts, skill.Name, skill.Context)
	}
	return rank.Tokenize(strings.Join(parts, " "))
}

func internshipTokens(internship domain.Internship) []string {
	parts := []string{internship.Title, internship.Company, internship.Description}
	parts = append(parts, internship.SkillTags...)
	return rank.Tokenize(strings.Join(parts, " "))
}
