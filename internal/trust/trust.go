// Package trust computes how much a candidate's claimed skill should be
// believed, combining quiz accuracy, recruiter feedback, and recency of
// verification into a single score in [0,1].
package trust

import (
	"time"

	"internmatch-service/internal/domain"
)

// Default calibration values. The confidence and decay curves are
// deliberately configurable; only their shape (monotone, bounded) is
// fixed.
const (
	DefaultRatingConfidenceK = 5
	DefaultRecencyWindow     = 180 * 24 * time.Hour
	DefaultRatingScaleMax    = 5.0
)

// Weights of the blended score. With at least one recruiter rating the
// rating term participates; without ratings its weight folds into
// accuracy.
const (
	weightAccuracyRated = 0.4
	weightRating        = 0.4
	weightRecencyRated  = 0.2

	weightAccuracyUnrated = 0.7
	weightRecencyUnrated  = 0.3
)

// Config holds the tunable parts of the trust formula.
type Config struct {
	// RatingConfidenceK is the rating count at which recruiter feedback
	// reaches full confidence: confidence = min(1, count/K).
	RatingConfidenceK int
	// RecencyWindow is the age at which a verification decays to zero
	// freshness. Decay is linear from 1 at verification time.
	RecencyWindow time.Duration
	// RatingScaleMax is the top of the recruiter rating scale; mean
	// ratings are divided by it to land in [0,1].
	RatingScaleMax float64
}

// DefaultConfig returns the documented default calibration.
func DefaultConfig() Config {
	return Config{
		RatingConfidenceK: DefaultRatingConfidenceK,
		RecencyWindow:     DefaultRecencyWindow,
		RatingScaleMax:    DefaultRatingScaleMax,
	}
}

func (c Config) withDefaults() Config {
	if c.RatingConfidenceK <= 0 {
		c.RatingConfidenceK = DefaultRatingConfidenceK
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = DefaultRecencyWindow
	}
	if c.RatingScaleMax <= 0 {
		c.RatingScaleMax = DefaultRatingScaleMax
	}
	return c
}

// Score computes the trust score for one candidate-skill pair. It is a
// pure function of its inputs: identical (attempt, rating, now, cfg)
// always produce the same value.
//
// attempt must be the most recent finalized attempt, or nil when the
// skill was never verified; unverified skills score zero regardless of
// ratings.
func Score(attempt *domain.VerificationAttempt, rating domain.RatingAggregate, now time.Time, cfg Config) float64 {
	if attempt == nil {
		return 0
	}
	cfg = cfg.withDefaults()

	accuracy := clamp01(attempt.Accuracy)
	recency := Recency(attempt.CompletedAt, now, cfg.RecencyWindow)

	if rating.Count <= 0 {
		return clamp01(weightAccuracyUnrated*accuracy + weightRecencyUnrated*recency)
	}

	adjusted := clamp01(rating.Mean/cfg.RatingScaleMax) * Confidence(rating.Count, cfg.RatingConfidenceK)
	return clamp01(weightAccuracyRated*accuracy + weightRating*adjusted + weightRecencyRated*recency)
}

// Recency maps the age of a verification to [0,1]: 1 at verification
// time, decaying linearly to 0 once the window has fully elapsed.
func Recency(completedAt, now time.Time, window time.Duration) float64 {
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	age := now.Sub(completedAt)
	if age <= 0 {
		return 1
	}
	return clamp01(1 - float64(age)/float64(window))
}

// Confidence discounts sparse recruiter feedback: a single rating
// counts for 1/K of a fully-backed one, growing linearly to 1 at K.
func Confidence(count, k int) float64 {
	if count <= 0 {
		return 0
	}
	if k <= 0 {
		k = DefaultRatingConfidenceK
	}
	return clamp01(float64(count) / float64(k))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
