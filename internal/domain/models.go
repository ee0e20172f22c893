package domain

import "time"

// Difficulty is a question tier. Tough questions get a longer timer.
type Difficulty string

const (
	DifficultyEasy  Difficulty = "easy"
	DifficultyTough Difficulty = "tough"
)

// TimeLimit returns how long a candidate has to answer a question of
// this tier: 20s for easy, 30s for tough.
func (d Difficulty) TimeLimit() time.Duration {
	if d == DifficultyTough {
		return 30 * time.Second
	}
	return 20 * time.Second
}

// QuestionsPerSession is fixed; accuracy is always a multiple of 0.2.
const QuestionsPerSession = 5

// Skill is immutable reference data. Tier steers the difficulty mix of
// quizzes built for the skill.
type Skill struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Tier Difficulty `json:"tier"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID         string     `json:"id"`
	SkillID    string     `json:"skillId"`
	Difficulty Difficulty `json:"difficulty"`
	Prompt     string     `json:"prompt"`
	Options    []Option   `json:"options"`
}

// TimeLimit is the per-question answer window.
func (q Question) TimeLimit() time.Duration {
	return q.Difficulty.TimeLimit()
}

// SkillBank is the full question pool for one skill, as loaded from the
// backing store. Quiz selection draws from it.
type SkillBank struct {
	Skill     Skill      `json:"skill"`
	Questions []Question `json:"questions"`
}

// AnswerRecord captures the outcome of a single question within an
// attempt. A question the candidate never answered keeps SelectedOption
// empty and Correct false.
type AnswerRecord struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption,omitempty"`
	Correct        bool   `json:"correct"`
	ElapsedSec     int    `json:"elapsedSec"`
	WithinLimit    bool   `json:"withinLimit"`
}

// VerificationAttempt is one finalized quiz session for a candidate and
// skill. It is immutable once finalized; the most recent attempt by
// CompletedAt is authoritative for trust scoring.
type VerificationAttempt struct {
	ID          string         `json:"id"`
	CandidateID string         `json:"candidateId"`
	SkillID     string         `json:"skillId"`
	Answers     []AnswerRecord `json:"answers"`
	Accuracy    float64        `json:"accuracy"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt time.Time      `json:"completedAt"`
}

// CorrectCount returns how many answers were scored correct.
func (a VerificationAttempt) CorrectCount() int {
	n := 0
	for _, ans := range a.Answers {
		if ans.Correct {
			n++
		}
	}
	return n
}

// RatingAggregate summarizes the recruiter ratings a candidate holds
// for a skill. Mean is on the portal's 0..5 scale; Count drives the
// confidence discount.
type RatingAggregate struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
}

// CandidateSkill is a claimed skill plus the candidate's free-text
// context (projects, experience) used for text matching.
type CandidateSkill struct {
	SkillID string `json:"skillId"`
	Name    string `json:"name"`
	Context string `json:"context,omitempty"`
}

// CandidateProfile is the read-only snapshot the ranker works from.
type CandidateProfile struct {
	CandidateID string           `json:"candidateId"`
	Skills      []CandidateSkill `json:"skills"`
}

// Internship is an open posting treated as a bag of terms plus its
// required-skill tags. Tags are normalized skill names.
type Internship struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Description string    `json:"description"`
	SkillTags   []string  `json:"skillTags"`
	PostedAt    time.Time `json:"postedAt"`
}

// Recommendation is one ranked entry returned to the caller.
type Recommendation struct {
	InternshipID string  `json:"internshipId"`
	Score        float64 `json:"score"`
}

// MatchBreakdown explains how one (candidate, internship) pair scored.
type MatchBreakdown struct {
	InternshipID    string  `json:"internshipId"`
	Similarity      float64 `json:"similarity"`
	TrustMultiplier float64 `json:"trustMultiplier"`
	Score           float64 `json:"score"`
}
