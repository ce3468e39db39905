// Package orchestrator runs one dialogue turn end to end: load the session,
// ask the NLU, decide, optionally store the completion and book, render the
// reply and save.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/dst"
	nodex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/nodes"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/policy"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

type Config struct {
	// Schema defaults to bookingx.DefaultSchema().
	Schema *bookingx.Schema
	// MaxHistory caps the messages kept per session; <= 0 uses
	// statex.DefaultMaxHistory.
	MaxHistory int
}

// TurnResult is what one turn produced.
type TurnResult struct {
	Reply  string
	Action actionx.Action
	// Phase the user's message was interpreted in.
	Phase dst.Phase
}

type Orchestrator struct {
	store        statex.Store
	understander contractx.Understander
	generator    contractx.Generator
	bookingAPI   contractx.BookingAPI
	engine       nodex.DecisionEngine

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	schema     *bookingx.Schema
	maxHistory int

	now func() time.Time
}

func New(
	store statex.Store,
	understander contractx.Understander,
	generator contractx.Generator,
	bookingAPI contractx.BookingAPI,
	engine nodex.DecisionEngine,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if understander == nil {
		return nil, errors.New("understander is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if bookingAPI == nil {
		bookingAPI = noopBookingAPI{}
	}
	if engine == nil {
		engine = policy.NewEngine()
	}

	schema := cfg.Schema
	if schema == nil {
		schema = bookingx.DefaultSchema()
	}
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = statex.DefaultMaxHistory
	}

	o := &Orchestrator{
		store:        store,
		understander: understander,
		generator:    generator,
		bookingAPI:   bookingAPI,
		engine:       engine,
		schema:       schema,
		maxHistory:   maxHistory,
		now:          time.Now,
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one user message. On error the session is as it was
// before the call, except that a booking the turn completed stays completed.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, text string) (TurnResult, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return TurnResult{}, err
	}
	return TurnResult{
		Reply:  out.Reply,
		Action: out.Action,
		Phase:  out.Phase,
	}, nil
}

// Reset forgets a conversation. The next turn starts from an empty trip.
func (o *Orchestrator) Reset(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrInvalidSession
	}
	return o.store.Delete(ctx, sessionID)
}

// noopBookingAPI accepts every booking and hands out a random reference.
type noopBookingAPI struct{}

func (noopBookingAPI) Book(context.Context, bookingx.Intent, map[string]string) (contractx.BookingReceipt, error) {
	return contractx.BookingReceipt{Reference: uuid.NewString()}, nil
}
