package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"internmatch-service/internal/app"
	"internmatch-service/internal/domain"
)

// VerifyHandler runs timed skill-verification quizzes over a websocket:
// the session payload goes out on connect, answers come in one by one,
// and the finalized attempt goes out on finish or deadline expiry.
type VerifyHandler struct {
	service  *app.VerificationService
	upgrader websocket.Upgrader
}

func NewVerifyHandler(service *app.VerificationService) *VerifyHandler {
	return &VerifyHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type answerPayload struct {
	QuestionIndex int    `json:"questionIndex"`
	OptionID      string `json:"optionId"`
	ElapsedSec    int    `json:"elapsedSec"`
}

type answerResultPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
}

type questionView struct {
	Index        int          `json:"index"`
	Prompt       string       `json:"prompt"`
	Difficulty   string       `json:"difficulty"`
	TimeLimitSec int          `json:"timeLimitSec"`
	Options      []optionView `json:"options"`
}

type optionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type sessionPayload struct {
	SessionID string         `json:"sessionId"`
	SkillID   string         `json:"skillId"`
	Deadline  time.Time      `json:"deadline"`
	Questions []questionView `json:"questions"`
}

type attemptPayload struct {
	AttemptID   string    `json:"attemptId"`
	Accuracy    float64   `json:"accuracy"`
	Correct     int       `json:"correct"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completedAt"`
}

// ServeWS upgrades the request and drives one verification session.
func (h *VerifyHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	candidateID := r.URL.Query().Get("candidateId")
	skillID := r.URL.Query().Get("skillId")
	if candidateID == "" || skillID == "" {
		http.Error(w, "missing candidateId or skillId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session, err := h.service.StartSession(r.Context(), candidateID, skillID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer h.service.Close(session.ID())

	send := make(chan any, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[sessionPayload]{Type: "session", Payload: sessionView(session)}

	// The deadline timer unblocks the read loop so an expired session is
	// finalized below with unanswered questions counted incorrect.
	deadline := time.NewTimer(time.Until(session.Deadline()))
	defer deadline.Stop()

	finished := make(chan struct{})
	go func() {
		select {
		case <-deadline.C:
			_ = conn.SetReadDeadline(time.Now())
		case <-finished:
		}
	}()
	defer close(finished)

	// The attempt summary goes out at most once per connection even
	// though finalize itself is idempotent and several paths reach it.
	attemptSent := false
	finish := func() {
		if attemptSent {
			return
		}
		attemptSent = h.finish(r.Context(), session.ID(), send)
	}

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "malformed answer"}}
				continue
			}
			correct, err := h.service.SubmitAnswer(r.Context(), session.ID(), payload.QuestionIndex, payload.OptionID, payload.ElapsedSec)
			if err != nil {
				send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				if errors.Is(err, domain.ErrSessionClosed) {
					finish()
				}
				continue
			}
			send <- outboundMessage[answerResultPayload]{Type: "answerResult", Payload: answerResultPayload{
				QuestionIndex: payload.QuestionIndex,
				Correct:       correct,
			}}
			if session.Answered() == len(session.Questions()) {
				finish()
			}
		case "finish":
			finish()
		default:
			send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "unknown message type"}}
		}
	}

	// Expiry or disconnect lands here with the session still open;
	// commit the attempt before the writer shuts down.
	if !session.Finalized() {
		finish()
	}

	close(send)
	<-writerDone
}

// finish finalizes the session and reports whether the attempt summary
// was emitted.
func (h *VerifyHandler) finish(ctx context.Context, sessionID string, send chan<- any) bool {
	attempt, err := h.service.Finalize(ctx, sessionID)
	if err != nil {
		send <- outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		return false
	}
	send <- outboundMessage[attemptPayload]{Type: "attempt", Payload: attemptPayload{
		AttemptID:   attempt.ID,
		Accuracy:    attempt.Accuracy,
		Correct:     attempt.CorrectCount(),
		Total:       len(attempt.Answers),
		CompletedAt: attempt.CompletedAt,
	}}
	return true
}

// sessionView strips correct-answer flags before content leaves the server.
func sessionView(session *app.Session) sessionPayload {
	questions := session.Questions()
	views := make([]questionView, 0, len(questions))
	for i, q := range questions {
		options := make([]optionView, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, optionView{ID: opt.ID, Text: opt.Text})
		}
		views = append(views, questionView{
			Index:        i,
			Prompt:       q.Prompt,
			Difficulty:   string(q.Difficulty),
			TimeLimitSec: int(q.TimeLimit().Seconds()),
			Options:      options,
		})
	}
	return sessionPayload{
		SessionID: session.ID(),
		SkillID:   session.SkillID(),
		Deadline:  session.Deadline(),
		Questions: views,
	}
}
