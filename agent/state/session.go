package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
)

var ErrNilTripContext = errors.New("trip context is nil")

const DefaultMaxHistory = 20

// SessionState is everything the orchestrator keeps between turns of one
// conversation.
// - Trip: booking store (bookings, current intent, pending carryover, last action)
// - History: recent user/assistant messages, passed to the NLU as context
type SessionState struct {
	SessionID string            `json:"session_id"`
	Trip      *TripContext      `json:"trip"`
	History   []*schema.Message `json:"history,omitempty"`
	Turns     int               `json:"turns"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func NewSessionState(sessionID string, bookingSchema *bookingx.Schema, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Trip:      NewTripContext(bookingSchema),
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// AppendHistory adds messages and keeps at most limit of the most recent ones.
// limit <= 0 keeps DefaultMaxHistory.
func (s *SessionState) AppendHistory(limit int, msgs ...*schema.Message) {
	if limit <= 0 {
		limit = DefaultMaxHistory
	}
	for _, m := range msgs {
		if m != nil {
			s.History = append(s.History, m)
		}
	}
	if over := len(s.History) - limit; over > 0 {
		s.History = append([]*schema.Message(nil), s.History[over:]...)
	}
}

// Clone deep-copies the session so callers never share a TripContext.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	out := *s
	out.Trip = s.Trip.Clone()
	if s.History != nil {
		out.History = make([]*schema.Message, 0, len(s.History))
		for _, m := range s.History {
			msg := *m
			out.History = append(out.History, &msg)
		}
	}
	return &out
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.Trip == nil {
		return fmt.Errorf("%w: session %s", ErrNilTripContext, s.SessionID)
	}
	if s.Trip.Schema() == nil {
		return fmt.Errorf("%w: session %s has no schema", ErrNilTripContext, s.SessionID)
	}
	return nil
}
