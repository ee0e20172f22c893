package memory

import (
	"context"
	"sync"

	"internmatch-service/internal/domain"
)

// Catalog is a static snapshot of candidate profiles and open
// internships, useful for demos and tests. In production these reads
// come from the portal's data store.
type Catalog struct {
	candidates  map[string]domain.CandidateProfile
	internships []domain.Internship
}

func NewCatalog(candidates map[string]domain.CandidateProfile, internships []domain.Internship) *Catalog {
	return &Catalog{candidates: candidates, internships: internships}
}

func (c *Catalog) Profile(_ context.Context, candidateID string) (domain.CandidateProfile, error) {
	if profile, ok := c.candidates[candidateID]; ok {
		return profile, nil
	}
	return domain.CandidateProfile{}, domain.ErrUnknownCandidate
}

func (c *Catalog) OpenInternships(_ context.Context) ([]domain.Internship, error) {
	out := make([]domain.Internship, len(c.internships))
	copy(out, c.internships)
	return out, nil
}

func (c *Catalog) Internship(_ context.Context, internshipID string) (domain.Internship, error) {
	for _, internship := range c.internships {
		if internship.ID == internshipID {
			return internship, nil
		}
	}
	return domain.Internship{}, domain.ErrUnknownInternship
}

// RatingLog is an append-only recruiter rating log with on-read
// aggregation, mirroring how the portal feeds rating events in.
type RatingLog struct {
	mu      sync.RWMutex
	ratings map[ratingKey][]float64
}

type ratingKey struct {
	candidateID string
	skillID     string
}

func NewRatingLog() *RatingLog {
	return &RatingLog{ratings: make(map[ratingKey][]float64)}
}

// Append records one recruiter rating on the portal's 0..5 scale.
func (l *RatingLog) Append(candidateID, skillID string, rating float64) {
	key := ratingKey{candidateID: candidateID, skillID: skillID}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ratings[key] = append(l.ratings[key], rating)
}

func (l *RatingLog) Aggregate(_ context.Context, candidateID, skillID string) (domain.RatingAggregate, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	log := l.ratings[ratingKey{candidateID: candidateID, skillID: skillID}]
	if len(log) == 0 {
		return domain.RatingAggregate{}, nil
	}
	sum := 0.0
	for _, r := range log {
		sum += r
	}
	return domain.RatingAggregate{Count: len(log), Mean: sum / float64(len(log))}, nil
}
