package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/dst"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/nlu"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/render"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

type bookingCall struct {
	intent bookingx.Intent
	slots  map[string]string
}

type fakeBookingAPI struct {
	err   error
	calls []bookingCall
}

func (f *fakeBookingAPI) Book(_ context.Context, intent bookingx.Intent, slots map[string]string) (contractx.BookingReceipt, error) {
	f.calls = append(f.calls, bookingCall{intent: intent, slots: slots})
	if f.err != nil {
		return contractx.BookingReceipt{}, f.err
	}
	return contractx.BookingReceipt{Reference: "ref-1"}, nil
}

type failingUnderstander struct{}

func (failingUnderstander) Understand(context.Context, contractx.UnderstandRequest) (contractx.Understanding, error) {
	return contractx.Understanding{}, contractx.ErrUnderstand
}

// generatorFailingOnce fails the first reply for kind, then defers to the
// wrapped generator.
type generatorFailingOnce struct {
	contractx.Generator
	kind   actionx.Kind
	failed bool
}

func (g *generatorFailingOnce) Generate(ctx context.Context, req contractx.GenerateRequest) (string, error) {
	if req.Action.Kind == g.kind && !g.failed {
		g.failed = true
		return "", contractx.ErrGenerate
	}
	return g.Generator.Generate(ctx, req)
}

const flightThenHotel = `
{"text": "I want to fly from Bangkok to Rome", "nlu": {"intent": "BOOK_FLIGHT", "slots": {"origin": "Bangkok", "destination": "Rome"}}}
{"text": "June 1st, two of us, mid budget", "nlu": {"slots": {"departure_date": "2025-06-01", "num_passengers": 2, "budget_level": "mid"}}}
{"text": "yes please", "nlu": {"affirm": true}}
{"text": "now I need a hotel", "nlu": {"intent": "ACCOMMODATION"}}
{"text": "yes", "nlu": {"affirm": true}}
`

func newTestOrchestrator(t *testing.T, script string, api contractx.BookingAPI) (*Orchestrator, *statex.MemoryStore) {
	t.Helper()

	turns, err := nlu.LoadScript(strings.NewReader(script))
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}
	return newTestOrchestratorWith(t, nlu.NewScripted(turns), api)
}

func newTestOrchestratorWith(t *testing.T, understander contractx.Understander, api contractx.BookingAPI) (*Orchestrator, *statex.MemoryStore) {
	t.Helper()

	store, err := statex.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	o, err := New(store, understander, renderer, api, nil, Config{MaxHistory: 6})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	o.now = func() time.Time { return time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC) }
	return o, store
}

func TestNewValidatesCollaborators(t *testing.T) {
	t.Parallel()

	store, err := statex.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	if _, err := New(nil, failingUnderstander{}, renderer, nil, nil, Config{}); err == nil {
		t.Fatalf("New() without store succeeded")
	}
	if _, err := New(store, nil, renderer, nil, nil, Config{}); err == nil {
		t.Fatalf("New() without understander succeeded")
	}
	if _, err := New(store, failingUnderstander{}, nil, nil, nil, Config{}); err == nil {
		t.Fatalf("New() without generator succeeded")
	}
}

func TestHandleTurnFlightThenAccommodationCarryover(t *testing.T) {
	t.Parallel()

	api := &fakeBookingAPI{}
	o, store := newTestOrchestrator(t, flightThenHotel, api)
	ctx := context.Background()

	steps := []struct {
		text   string
		action actionx.Action
		phase  dst.Phase
		reply  string
	}{
		{
			text:   "I want to fly from Bangkok to Rome",
			action: actionx.RequestMissingSlot("departure_date"),
			phase:  dst.Normal(),
			reply:  "What is the departure date?",
		},
		{
			text:   "June 1st, two of us, mid budget",
			action: actionx.AskConfirmation(bookingx.IntentFlight),
			phase:  dst.Phase{Kind: dst.PhaseAwaitSlotValue, Slot: "departure_date"},
			reply: "Here is your flight booking: budget level mid, departure date 2025-06-01, " +
				"destination Rome, num passengers 2, origin Bangkok. Shall I book it?",
		},
		{
			text:   "yes please",
			action: actionx.CompleteBooking(bookingx.IntentFlight),
			phase:  dst.Phase{Kind: dst.PhaseAwaitConfirmation},
			reply:  "Your flight is booked, reference ref-1.",
		},
		{
			text:   "now I need a hotel",
			action: actionx.OfferSlotCarryover("destination", "Rome"),
			phase:  dst.Normal(),
			reply:  "Shall I use Rome as the destination for your accommodation booking too?",
		},
		{
			text:   "yes",
			action: actionx.RequestMissingSlot("check_in_date"),
			phase:  dst.Phase{Kind: dst.PhaseCarryover},
			reply:  "What is the check in date?",
		},
	}

	for i, step := range steps {
		res, err := o.HandleTurn(ctx, "conv-1", step.text)
		if err != nil {
			t.Fatalf("turn %d: HandleTurn() error = %v", i+1, err)
		}
		if res.Action != step.action {
			t.Fatalf("turn %d: action = %s, want %s", i+1, res.Action, step.action)
		}
		if res.Phase != step.phase {
			t.Fatalf("turn %d: phase = %s, want %s", i+1, res.Phase, step.phase)
		}
		if res.Reply != step.reply {
			t.Fatalf("turn %d: reply = %q, want %q", i+1, res.Reply, step.reply)
		}
	}

	if len(api.calls) != 1 || api.calls[0].intent != bookingx.IntentFlight {
		t.Fatalf("booking calls = %+v, want one FLIGHT call", api.calls)
	}
	if api.calls[0].slots["num_passengers"] != "2" {
		t.Fatalf("booked slots = %v", api.calls[0].slots)
	}

	st, err := store.Load(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	trip := st.Trip
	if !trip.IsCompleted(bookingx.IntentFlight) || trip.IsCompleted(bookingx.IntentAccommodation) {
		t.Fatalf("completed = %v, want only FLIGHT", trip.CompletedIntents())
	}
	if v, _ := trip.GetBooking(bookingx.IntentAccommodation).Get("destination"); v != "Rome" {
		t.Fatalf("accommodation destination = %q, want Rome", v)
	}
	if trip.GetBooking(bookingx.IntentAccommodation).IsSet("num_guests") {
		t.Fatalf("num_guests carried over without being offered")
	}
	if v, _ := trip.GetBooking(bookingx.IntentFlight).Get("destination"); v != "Rome" {
		t.Fatalf("flight booking changed by carryover")
	}
	if _, ok := trip.PendingCarryover(); ok {
		t.Fatalf("pending carryover left after it was answered")
	}
	if st.Turns != 5 {
		t.Fatalf("Turns = %d, want 5", st.Turns)
	}
	if len(st.History) != 6 {
		t.Fatalf("len(History) = %d, want capped at 6", len(st.History))
	}
	if st.History[len(st.History)-1].Content != "What is the check in date?" {
		t.Fatalf("last history message = %q", st.History[len(st.History)-1].Content)
	}
}

func TestHandleTurnBookingFailureStillCompletes(t *testing.T) {
	t.Parallel()

	const script = `
{"text": "activity in Rome", "nlu": {"intent": "ACTIVITY", "slots": {"destination": "Rome", "activity_category": "museum", "budget_level": "low"}}}
{"text": "yes", "nlu": {"affirm": true}}
{"text": "book it again", "nlu": {"intent": "ACTIVITY"}}
`
	api := &fakeBookingAPI{err: errors.New("supplier down")}
	o, store := newTestOrchestrator(t, script, api)
	ctx := context.Background()

	if _, err := o.HandleTurn(ctx, "conv-2", "activity in Rome"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	res, err := o.HandleTurn(ctx, "conv-2", "yes")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if !strings.Contains(res.Reply, "could not be placed yet") || !strings.Contains(res.Reply, "supplier down") {
		t.Fatalf("reply = %q, want booking failure notice", res.Reply)
	}

	st, err := store.Load(ctx, "conv-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !st.Trip.IsCompleted(bookingx.IntentActivity) {
		t.Fatalf("ACTIVITY not completed after booking failure")
	}

	// completion is reported once; asking again does not re-book
	res, err = o.HandleTurn(ctx, "conv-2", "book it again")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Reply != "Your activity booking is already complete." {
		t.Fatalf("reply = %q", res.Reply)
	}
	if len(api.calls) != 1 {
		t.Fatalf("booking calls = %d, want 1", len(api.calls))
	}
}

func TestHandleTurnRetryAfterReplyFailureDoesNotRebook(t *testing.T) {
	t.Parallel()

	const script = `
{"text": "activity in Rome", "nlu": {"intent": "ACTIVITY", "slots": {"destination": "Rome", "activity_category": "museum", "budget_level": "low"}}}
{"text": "yes", "nlu": {"affirm": true}}
{"text": "yes", "nlu": {"affirm": true}}
`
	turns, err := nlu.LoadScript(strings.NewReader(script))
	if err != nil {
		t.Fatalf("LoadScript() error = %v", err)
	}
	store, err := statex.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	renderer, err := render.NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	api := &fakeBookingAPI{}
	generator := &generatorFailingOnce{Generator: renderer, kind: actionx.KindCompleteBooking}
	o, err := New(store, nlu.NewScripted(turns), generator, api, nil, Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := o.HandleTurn(ctx, "conv-7", "activity in Rome"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if _, err := o.HandleTurn(ctx, "conv-7", "yes"); !errors.Is(err, contractx.ErrGenerate) {
		t.Fatalf("HandleTurn() error = %v, want ErrGenerate", err)
	}

	st, err := store.Load(ctx, "conv-7")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !st.Trip.IsCompleted(bookingx.IntentActivity) {
		t.Fatalf("completion not stored before the failed reply")
	}
	if st.Turns != 1 {
		t.Fatalf("Turns = %d, want 1: the failed turn is not recorded", st.Turns)
	}

	res, err := o.HandleTurn(ctx, "conv-7", "yes")
	if err != nil {
		t.Fatalf("retry HandleTurn() error = %v", err)
	}
	if res.Reply != "Your activity booking is already complete." {
		t.Fatalf("reply = %q", res.Reply)
	}
	if len(api.calls) != 1 {
		t.Fatalf("booking calls = %d, want 1", len(api.calls))
	}
}

func TestHandleTurnUnderstandErrorSavesNothing(t *testing.T) {
	t.Parallel()

	o, store := newTestOrchestratorWith(t, failingUnderstander{}, nil)

	_, err := o.HandleTurn(context.Background(), "conv-3", "hello")
	if !errors.Is(err, contractx.ErrUnderstand) {
		t.Fatalf("HandleTurn() error = %v, want ErrUnderstand", err)
	}
	if store.Len() != 0 {
		t.Fatalf("store has %d sessions after failed turn, want 0", store.Len())
	}
}

func TestHandleTurnScriptExhaustedKeepsPreviousState(t *testing.T) {
	t.Parallel()

	const script = `{"text": "fly to Rome", "nlu": {"intent": "FLIGHT", "slots": {"destination": "Rome"}}}`
	o, store := newTestOrchestrator(t, script, nil)
	ctx := context.Background()

	if _, err := o.HandleTurn(ctx, "conv-4", "fly to Rome"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if _, err := o.HandleTurn(ctx, "conv-4", "and from Bangkok"); !errors.Is(err, contractx.ErrScriptExhausted) {
		t.Fatalf("HandleTurn() error = %v, want ErrScriptExhausted", err)
	}

	st, err := store.Load(ctx, "conv-4")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Turns != 1 || len(st.History) != 2 {
		t.Fatalf("Turns = %d, len(History) = %d, want 1 and 2", st.Turns, len(st.History))
	}
	last, ok := st.Trip.LastAction()
	if !ok || last != actionx.RequestMissingSlot("origin") {
		t.Fatalf("last action = %s, want REQUEST_MISSING_SLOT(origin)", last)
	}
}

func TestHandleTurnRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestratorWith(t, failingUnderstander{}, nil)
	ctx := context.Background()

	if _, err := o.HandleTurn(ctx, "", "hi"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("HandleTurn() error = %v, want ErrInvalidSession", err)
	}
	if _, err := o.HandleTurn(ctx, "conv-5", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("HandleTurn() error = %v, want ErrInvalidMessage", err)
	}
}

func TestResetDropsConversation(t *testing.T) {
	t.Parallel()

	const script = `
{"text": "fly to Rome", "nlu": {"intent": "FLIGHT", "slots": {"destination": "Rome"}}}
{"text": "hi again", "nlu": {}}
`
	o, store := newTestOrchestrator(t, script, nil)
	ctx := context.Background()

	if _, err := o.HandleTurn(ctx, "conv-6", "fly to Rome"); err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if err := o.Reset(ctx, "conv-6"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if _, err := store.Load(ctx, "conv-6"); !errors.Is(err, statex.ErrStateNotFound) {
		t.Fatalf("Load() after Reset error = %v, want ErrStateNotFound", err)
	}
	if err := o.Reset(ctx, " "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Reset() error = %v, want ErrInvalidSession", err)
	}

	// a fresh conversation has no current intent, so an empty NLU result is OOD
	res, err := o.HandleTurn(ctx, "conv-6", "hi again")
	if err != nil {
		t.Fatalf("HandleTurn() error = %v", err)
	}
	if res.Action != actionx.HandleOOD() {
		t.Fatalf("action = %s, want HANDLE_OOD", res.Action)
	}
}
