package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
)

var (
	ErrInvalidSlot      = errors.New("invalid slot")
	ErrBookingCompleted = errors.New("booking already completed")
)

// InvalidSlotError reports a slot write the schema does not allow.
type InvalidSlotError struct {
	Intent bookingx.Intent
	Slot   string
	Reason string
}

func (e *InvalidSlotError) Error() string {
	return fmt.Sprintf("%s %q for %s: %s", ErrInvalidSlot, e.Slot, e.Intent, e.Reason)
}

func (e *InvalidSlotError) Is(target error) bool {
	return target == ErrInvalidSlot
}

// ConfirmationStatus tracks the ASK_CONFIRMATION exchange for one intent.
type ConfirmationStatus string

const (
	ConfirmationNone     ConfirmationStatus = "none"
	ConfirmationAsked    ConfirmationStatus = "asked"
	ConfirmationAffirmed ConfirmationStatus = "affirmed"
	ConfirmationDenied   ConfirmationStatus = "denied"
)

// PendingCarryover is a value offered to the user and awaiting yes/no.
type PendingCarryover struct {
	Slot   string          `json:"slot"`
	Value  string          `json:"value"`
	Source bookingx.Intent `json:"source"`
	Target bookingx.Intent `json:"target"`
}

// TripContext is the aggregate booking state of one conversation. One
// instance belongs to exactly one conversation; it is not safe for concurrent
// use.
type TripContext struct {
	schema       *bookingx.Schema
	bookings     map[bookingx.Intent]*bookingx.Booking
	current      bookingx.Intent
	completed    map[bookingx.Intent]struct{}
	confirmation map[bookingx.Intent]ConfirmationStatus
	pending      *PendingCarryover
	lastAction   *actionx.Action
}

func NewTripContext(schema *bookingx.Schema) *TripContext {
	tc := &TripContext{
		schema:       schema,
		bookings:     make(map[bookingx.Intent]*bookingx.Booking, len(bookingx.Intents)),
		completed:    make(map[bookingx.Intent]struct{}, len(bookingx.Intents)),
		confirmation: make(map[bookingx.Intent]ConfirmationStatus, len(bookingx.Intents)),
	}
	for _, intent := range bookingx.Intents {
		tc.bookings[intent] = bookingx.NewBooking(intent)
	}
	return tc
}

func (tc *TripContext) Schema() *bookingx.Schema {
	return tc.schema
}

// GetBooking returns a copy of the booking for intent.
func (tc *TripContext) GetBooking(intent bookingx.Intent) *bookingx.Booking {
	b, ok := tc.bookings[intent]
	if !ok {
		return bookingx.NewBooking(intent)
	}
	return b.Clone()
}

// SetSlot writes value into the booking of intent. The slot must be declared
// for intent and the booking must not be completed.
func (tc *TripContext) SetSlot(intent bookingx.Intent, slot, value string) error {
	if err := tc.checkWritable(intent, slot); err != nil {
		return err
	}
	if value == "" {
		return &InvalidSlotError{Intent: intent, Slot: slot, Reason: "empty value"}
	}
	tc.bookings[intent].Set(slot, value)
	return nil
}

func (tc *TripContext) checkWritable(intent bookingx.Intent, slot string) error {
	if !intent.Valid() {
		return fmt.Errorf("%w: %q", bookingx.ErrUnknownIntent, intent)
	}
	if !tc.schema.IsDeclared(intent, slot) {
		return &InvalidSlotError{Intent: intent, Slot: slot, Reason: "not declared for intent"}
	}
	if tc.IsCompleted(intent) {
		return fmt.Errorf("%w: %s", ErrBookingCompleted, intent)
	}
	return nil
}

// MarkCompleted adds intent to the completed set. It reports false when the
// intent was already completed.
func (tc *TripContext) MarkCompleted(intent bookingx.Intent) bool {
	if tc.IsCompleted(intent) {
		return false
	}
	tc.completed[intent] = struct{}{}
	return true
}

func (tc *TripContext) IsCompleted(intent bookingx.Intent) bool {
	_, ok := tc.completed[intent]
	return ok
}

// CompletedIntents returns the completed set in canonical intent order.
func (tc *TripContext) CompletedIntents() []bookingx.Intent {
	return lo.Filter(bookingx.Intents, func(i bookingx.Intent, _ int) bool {
		return tc.IsCompleted(i)
	})
}

// MissingRequiredSlot returns the first unset required slot in declared order.
func (tc *TripContext) MissingRequiredSlot(intent bookingx.Intent) (string, bool) {
	missing := tc.MissingRequiredSlots(intent)
	if len(missing) == 0 {
		return "", false
	}
	return missing[0], true
}

func (tc *TripContext) MissingRequiredSlots(intent bookingx.Intent) []string {
	b := tc.bookings[intent]
	return lo.Filter(tc.schema.Required(intent), func(slot string, _ int) bool {
		return !b.IsSet(slot)
	})
}

// CurrentIntent reports the intent being filled, if one was established.
func (tc *TripContext) CurrentIntent() (bookingx.Intent, bool) {
	return tc.current, tc.current != ""
}

func (tc *TripContext) SetCurrentIntent(intent bookingx.Intent) error {
	if !intent.Valid() {
		return fmt.Errorf("%w: %q", bookingx.ErrUnknownIntent, intent)
	}
	tc.current = intent
	return nil
}

func (tc *TripContext) Confirmation(intent bookingx.Intent) ConfirmationStatus {
	if st, ok := tc.confirmation[intent]; ok {
		return st
	}
	return ConfirmationNone
}

func (tc *TripContext) SetConfirmation(intent bookingx.Intent, status ConfirmationStatus) {
	if status == ConfirmationNone {
		delete(tc.confirmation, intent)
		return
	}
	tc.confirmation[intent] = status
}

func (tc *TripContext) PendingCarryover() (PendingCarryover, bool) {
	if tc.pending == nil {
		return PendingCarryover{}, false
	}
	return *tc.pending, true
}

func (tc *TripContext) SetPendingCarryover(p PendingCarryover) {
	tc.pending = &p
}

func (tc *TripContext) ClearPendingCarryover() {
	tc.pending = nil
}

func (tc *TripContext) LastAction() (actionx.Action, bool) {
	if tc.lastAction == nil {
		return actionx.Action{}, false
	}
	return *tc.lastAction, true
}

func (tc *TripContext) SetLastAction(a actionx.Action) {
	tc.lastAction = &a
}

// Clone returns a deep copy sharing only the immutable schema.
func (tc *TripContext) Clone() *TripContext {
	if tc == nil {
		return nil
	}
	out := &TripContext{
		schema:       tc.schema,
		bookings:     make(map[bookingx.Intent]*bookingx.Booking, len(tc.bookings)),
		current:      tc.current,
		completed:    lo.Assign(tc.completed),
		confirmation: lo.Assign(tc.confirmation),
	}
	for intent, b := range tc.bookings {
		out.bookings[intent] = b.Clone()
	}
	if tc.pending != nil {
		p := *tc.pending
		out.pending = &p
	}
	if tc.lastAction != nil {
		a := *tc.lastAction
		out.lastAction = &a
	}
	return out
}

// Summary is a read-only snapshot handed to the NLG collaborator.
type Summary struct {
	CurrentIntent bookingx.Intent                       `json:"current_intent,omitempty"`
	Filled        map[string]string                     `json:"filled,omitempty"`
	Missing       []string                              `json:"missing,omitempty"`
	Confirmation  ConfirmationStatus                    `json:"confirmation,omitempty"`
	Completed     []bookingx.Intent                     `json:"completed,omitempty"`
	Pending       *PendingCarryover                     `json:"pending_carryover,omitempty"`
	Bookings      map[bookingx.Intent]map[string]string `json:"bookings"`
}

func (tc *TripContext) Summary() Summary {
	s := Summary{
		Completed: tc.CompletedIntents(),
		Bookings:  make(map[bookingx.Intent]map[string]string, len(bookingx.Intents)),
	}
	for _, intent := range bookingx.Intents {
		if b := tc.bookings[intent]; b.Populated() {
			s.Bookings[intent] = b.Values()
		}
	}
	if intent, ok := tc.CurrentIntent(); ok {
		s.CurrentIntent = intent
		s.Filled = tc.bookings[intent].Values()
		s.Missing = tc.MissingRequiredSlots(intent)
		s.Confirmation = tc.Confirmation(intent)
	}
	if p, ok := tc.PendingCarryover(); ok {
		s.Pending = &p
	}
	return s
}

type tripJSON struct {
	CurrentIntent    bookingx.Intent                        `json:"current_intent,omitempty"`
	Bookings         []*bookingx.Booking                    `json:"bookings"`
	CompletedIntents []bookingx.Intent                      `json:"completed_intents,omitempty"`
	Confirmation     map[bookingx.Intent]ConfirmationStatus `json:"confirmation,omitempty"`
	PendingCarryover *PendingCarryover                      `json:"pending_carryover,omitempty"`
	LastAction       *actionx.Action                        `json:"last_action,omitempty"`
}

func (tc *TripContext) MarshalJSON() ([]byte, error) {
	raw := tripJSON{
		CurrentIntent:    tc.current,
		CompletedIntents: tc.CompletedIntents(),
		Confirmation:     tc.confirmation,
		PendingCarryover: tc.pending,
		LastAction:       tc.lastAction,
	}
	for _, intent := range bookingx.Intents {
		raw.Bookings = append(raw.Bookings, tc.bookings[intent])
	}
	return json.Marshal(raw)
}
