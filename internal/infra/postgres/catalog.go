package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"internmatch-service/internal/domain"
)

// Catalog reads candidate profiles and the open internship pool from
// JSONB snapshots maintained by the portal.
type Catalog struct {
	pool *pgxpool.Pool
}

func NewCatalog(pool *pgxpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

func (c *Catalog) Profile(ctx context.Context, candidateID string) (domain.CandidateProfile, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT data FROM candidate_profiles WHERE id=$1`, candidateID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.CandidateProfile{}, domain.ErrUnknownCandidate
	}
	if err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("load profile: %w", err)
	}
	var profile domain.CandidateProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return domain.CandidateProfile{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	return profile, nil
}

func (c *Catalog) OpenInternships(ctx context.Context) ([]domain.Internship, error) {
	rows, err := c.pool.Query(ctx, `SELECT data FROM internships WHERE open ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load internships: %w", err)
	}
	defer rows.Close()

	var out []domain.Internship
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan internship: %w", err)
		}
		var internship domain.Internship
		if err := json.Unmarshal(raw, &internship); err != nil {
			return nil, fmt.Errorf("unmarshal internship: %w", err)
		}
		out = append(out, internship)
	}
	return out, rows.Err()
}

func (c *Catalog) Internship(ctx context.Context, internshipID string) (domain.Internship, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT data FROM internships WHERE id=$1`, internshipID).Scan(&raw)
	if err == pgx.ErrNoRows {
		return domain.Internship{}, domain.ErrUnknownInternship
	}
	if err != nil {
		return domain.Internship{}, fmt.Errorf("load internship: %w", err)
	}
	var internship domain.Internship
	if err := json.Unmarshal(raw, &internship); err != nil {
		return domain.Internship{}, fmt.Errorf("unmarshal internship: %w", err)
	}
	return internship, nil
}

// RatingSource aggregates recruiter rating events at read time.
type RatingSource struct {
	pool *pgxpool.Pool
}

func NewRatingSource(pool *pgxpool.Pool) *RatingSource {
	return &RatingSource{pool: pool}
}

func (r *RatingSource) Aggregate(ctx context.Context, candidateID, skillID string) (domain.RatingAggregate, error) {
	var count int
	var mean *float64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), AVG(rating) FROM recruiter_ratings WHERE candidate_id=$1 AND skill_id=$2`,
		candidateID, skillID,
	).Scan(&count, &mean)
	if err != nil {
		return domain.RatingAggregate{}, fmt.Errorf("aggregate ratings: %w", err)
	}
	agg := domain.RatingAggregate{Count: count}
	if mean != nil {
		agg.Mean = *mean
	}
	return agg, nil
}
