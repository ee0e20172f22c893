package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a verification session handle is unknown.
	ErrSessionNotFound = errors.New("verification session not found")
	// ErrSessionClosed is returned when answering after finalize.
	ErrSessionClosed = errors.New("verification session closed")
	// ErrQuestionNotFound indicates a submitted question index is out of range.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUnknownSkill indicates the skill identifier does not resolve.
	ErrUnknownSkill = errors.New("unknown skill")
	// ErrUnknownCandidate indicates the candidate identifier does not resolve.
	ErrUnknownCandidate = errors.New("unknown candidate")
	// ErrUnknownInternship indicates the internship identifier does not resolve.
	ErrUnknownInternship = errors.New("unknown internship")
	// ErrEmptyBank indicates a skill's pool cannot fill a quiz.
	ErrEmptyBank = errors.New("skill has too few questions for a quiz")
)
