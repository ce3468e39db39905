// Package nodes holds the steps of the per-turn orchestrator graph. Every
// node takes and returns the shared *GraphState.
package nodes

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/dst"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/policy"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
	logx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/pkg/logger"
)

var (
	ErrInvalidMessage = errors.New("message is empty")
	ErrInvalidSession = errors.New("session id is empty")
)

// logger is resolved per call so it picks up logx.Init.
func logger() *zerolog.Logger {
	l := logx.Component("orchestrator.nodes")
	return &l
}

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply  string
	Action actionx.Action
	// Phase is the dialogue phase the user's message was interpreted in.
	Phase dst.Phase
}

type GraphState struct {
	SessionID string
	Text      string
	Now       time.Time

	Session       *statex.SessionState
	Hint          dst.Hint
	Understanding contractx.Understanding
	Decision      policy.Decision
	Booking       *contractx.BookingOutcome

	Reply string
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, ErrInvalidSession
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	return &GraphState{
		SessionID: sessionID,
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
