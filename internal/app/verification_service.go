package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"internmatch-service/internal/domain"
)

// sessionGrace pads the overall session deadline beyond the sum of
// per-question limits to absorb network delivery time.
const sessionGrace = 5 * time.Second

// QuestionBank supplies a fixed-size quiz for a skill.
type QuestionBank interface {
	BuildQuiz(ctx context.Context, skillID string) (domain.Skill, []domain.Question, error)
}

// SessionRepository abstracts how live verification sessions are held
// (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// AttemptStore persists finalized attempts and serves latest-wins reads.
type AttemptStore interface {
	Save(ctx context.Context, attempt domain.VerificationAttempt) error
	// Latest returns the most recent finalized attempt by CompletedAt,
	// or nil when the skill was never verified.
	Latest(ctx context.Context, candidateID, skillID string) (*domain.VerificationAttempt, error)
}

// VerificationService runs timed skill-verification quizzes.
type VerificationService struct {
	bank     QuestionBank
	sessions SessionRepository
	attempts AttemptStore
	now      func() time.Time
	newID    func() string
}

func NewVerificationService(bank QuestionBank, sessions SessionRepository, attempts AttemptStore) *VerificationService {
	return &VerificationService{
		bank:     bank,
		sessions: sessions,
		attempts: attempts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// NewVerificationServiceWithClock is test-only for deterministic timestamps and IDs.
func NewVerificationServiceWithClock(bank QuestionBank, sessions SessionRepository, attempts AttemptStore, now func() time.Time, newID func() string) *VerificationService {
	s := NewVerificationService(bank, sessions, attempts)
	if now != nil {
		s.now = now
	}
	if newID != nil {
		s.newID = newID
	}
	return s
}

// StartSession builds a quiz for the skill and opens a timed session.
func (s *VerificationService) StartSession(ctx context.Context, candidateID, skillID string) (*Session, error) {
	_, questions, err := s.bank.BuildQuiz(ctx, skillID)
	if err != nil {
		return nil, err
	}
	session := newSessionWithClock(s.newID(), candidateID, skillID, questions, s.now)
	s.sessions.Put(session)
	return session, nil
}

// SubmitAnswer records one answer. A late, unknown, or empty option
// degrades to incorrect rather than failing; only answering a closed
// session or an out-of-range question is an error.
func (s *VerificationService) SubmitAnswer(ctx context.Context, sessionID string, questionIndex int, optionID string, elapsedSec int) (bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	correct, expired, err := session.submitAnswer(questionIndex, optionID, elapsedSec)
	if expired {
		// The deadline passed underneath the candidate; commit the
		// attempt with what was answered so far.
		if _, ferr := s.Finalize(ctx, sessionID); ferr != nil {
			return false, ferr
		}
	}
	return correct, err
}

// Finalize scores the session and persists the attempt. It is
// idempotent: repeated calls return the same immutable attempt and the
// store is written once.
func (s *VerificationService) Finalize(ctx context.Context, sessionID string) (domain.VerificationAttempt, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.VerificationAttempt{}, domain.ErrSessionNotFound
	}
	attempt, first := session.finalize()
	if first {
		if err := s.attempts.Save(ctx, attempt); err != nil {
			return attempt, fmt.Errorf("save attempt: %w", err)
		}
	}
	return attempt, nil
}

// Close drops a session from the repository once the caller is done
// with it. Finalized results live on in the attempt store.
func (s *VerificationService) Close(sessionID string) {
	s.sessions.Delete(sessionID)
}

// Session is one live quiz run. All mutation goes through the mutex;
// after finalize the result is immutable.
type Session struct {
	id          string
	candidateID string
	skillID     string
	questions   []domain.Question
	startedAt   time.Time
	deadline    time.Time
	now         func() time.Time

	mu        sync.Mutex
	answers   []*domain.AnswerRecord
	finalized bool
	result    domain.VerificationAttempt
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id, candidateID, skillID string, questions []domain.Question) *Session {
	return newSessionWithClock(id, candidateID, skillID, questions, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, candidateID, skillID string, questions []domain.Question, now func() time.Time) *Session {
	return newSessionWithClock(id, candidateID, skillID, questions, now)
}

func newSessionWithClock(id, candidateID, skillID string, questions []domain.Question, now func() time.Time) *Session {
	started := now()
	var budget time.Duration
	for _, q := range questions {
		budget += q.TimeLimit()
	}
	return &Session{
		id:          id,
		candidateID: candidateID,
		skillID:     skillID,
		questions:   questions,
		startedAt:   started,
		deadline:    started.Add(budget + sessionGrace),
		now:         now,
		answers:     make([]*domain.AnswerRecord, len(questions)),
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) CandidateID() string { return s.candidateID }
func (s *Session) SkillID() string     { return s.skillID }

// Questions returns the quiz content. Callers rendering it to
// candidates must strip the Correct flags.
func (s *Session) Questions() []domain.Question { return s.questions }

// Deadline is the wall-clock time at which the session expires.
func (s *Session) Deadline() time.Time { return s.deadline }

// Answered reports how many questions have a recorded answer.
func (s *Session) Answered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.answers {
		if a != nil {
			n++
		}
	}
	return n
}

// submitAnswer records an answer for the question at questionIndex.
// The first answer per question wins. expired reports that the session
// deadline had already passed, in which case nothing is recorded.
func (s *Session) submitAnswer(questionIndex int, optionID string, elapsedSec int) (correct, expired bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return false, false, domain.ErrSessionClosed
	}
	if s.now().After(s.deadline) {
		return false, true, domain.ErrSessionClosed
	}
	if questionIndex < 0 || questionIndex >= len(s.questions) {
		return false, false, domain.ErrQuestionNotFound
	}
	if s.answers[questionIndex] != nil {
		return s.answers[questionIndex].Correct, false, nil
	}

	question := s.questions[questionIndex]
	withinLimit := elapsedSec >= 0 && time.Duration(elapsedSec)*time.Second <= question.TimeLimit()
	correct = withinLimit && optionIsCorrect(question, optionID)

	record := &domain.AnswerRecord{
		QuestionID:  question.ID,
		Correct:     correct,
		ElapsedSec:  elapsedSec,
		WithinLimit: withinLimit,
	}
	if optionID != "" {
		record.SelectedOption = optionID
	}
	s.answers[questionIndex] = record
	return correct, false, nil
}

// finalize scores the session. Unanswered questions count as incorrect.
// first is true only on the call that sealed the result.
func (s *Session) finalize() (domain.VerificationAttempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finalized {
		return s.result, false
	}

	records := make([]domain.AnswerRecord, len(s.questions))
	correct := 0
	for i, answer := range s.answers {
		if answer == nil {
			records[i] = domain.AnswerRecord{QuestionID: s.questions[i].ID}
			continue
		}
		records[i] = *answer
		if answer.Correct {
			correct++
		}
	}

	accuracy := 0.0
	if len(s.questions) > 0 {
		accuracy = float64(correct) / float64(len(s.questions))
	}

	s.result = domain.VerificationAttempt{
		ID:          s.id,
		CandidateID: s.candidateID,
		SkillID:     s.skillID,
		Answers:     records,
		Accuracy:    accuracy,
		StartedAt:   s.startedAt,
		CompletedAt: s.now(),
	}
	s.finalized = true
	return s.result, true
}

// Finalized reports whether the session has been sealed.
func (s *Session) Finalized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

func optionIsCorrect(q domain.Question, optionID string) bool {
	if optionID == "" {
		return false
	}
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return opt.Correct
		}
	}
	return false
}
