// Package dst classifies the conversation into a control phase from the last
// action and builds the constraint hint handed to the NLU collaborator.
package dst

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

var ErrUnreachableState = errors.New("unreachable dialogue state")

type PhaseKind string

const (
	PhaseNormal             PhaseKind = "NORMAL"
	PhaseCarryover          PhaseKind = "CARRYOVER"
	PhaseAwaitConfirmation  PhaseKind = "AWAIT_CONFIRMATION"
	PhaseAwaitCorrectedSlot PhaseKind = "AWAIT_CORRECTED_SLOT"
	PhaseAwaitSlotValue     PhaseKind = "AWAIT_SLOT_VALUE"
)

// Phase is the control phase. Slot is set only for AWAIT_SLOT_VALUE.
type Phase struct {
	Kind PhaseKind `json:"kind"`
	Slot string    `json:"slot,omitempty"`
}

func Normal() Phase {
	return Phase{Kind: PhaseNormal}
}

// String returns the phase tag, e.g. AWAIT_SLOT_VALUE(origin).
func (p Phase) String() string {
	if p.Kind == PhaseAwaitSlotValue {
		return string(p.Kind) + "(" + p.Slot + ")"
	}
	return string(p.Kind)
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ExpectsAffirm reports whether a bare yes/no answers the last question.
func (p Phase) ExpectsAffirm() bool {
	return p.Kind == PhaseCarryover || p.Kind == PhaseAwaitConfirmation
}

// Classify maps the last action to a phase. The zero Action means none.
func Classify(last actionx.Action) Phase {
	switch last.Kind {
	case actionx.KindOfferSlotCarryover:
		return Phase{Kind: PhaseCarryover}
	case actionx.KindAskConfirmation:
		return Phase{Kind: PhaseAwaitConfirmation}
	case actionx.KindHandleDenial:
		return Phase{Kind: PhaseAwaitCorrectedSlot}
	case actionx.KindRequestMissingSlot:
		return Phase{Kind: PhaseAwaitSlotValue, Slot: last.Slot}
	default:
		return Normal()
	}
}

// Hint constrains the next NLU parse.
type Hint struct {
	Phase         Phase                    `json:"phase"`
	CurrentIntent bookingx.Intent          `json:"current_intent,omitempty"`
	ExpectedSlot  string                   `json:"expected_slot,omitempty"`
	ValidIntents  []bookingx.Intent        `json:"valid_intents"`
	ValidSlots    []string                 `json:"valid_slots,omitempty"`
	MissingSlots  []string                 `json:"missing_slots,omitempty"`
	Pending       *statex.PendingCarryover `json:"pending_carryover,omitempty"`
}

// Track classifies tc.LastAction and checks the phase against the rest of
// tc. When they disagree it returns a NORMAL hint and an error matching
// ErrUnreachableState; the hint is always usable.
func Track(tc *statex.TripContext) (Hint, error) {
	last, _ := tc.LastAction()
	phase := Classify(last)

	hint := Hint{
		Phase:        phase,
		ValidIntents: append([]bookingx.Intent(nil), bookingx.Intents...),
	}
	current, hasCurrent := tc.CurrentIntent()
	if hasCurrent {
		hint.CurrentIntent = current
		hint.ValidSlots = tc.Schema().Declared(current)
		hint.MissingSlots = tc.MissingRequiredSlots(current)
	}
	pending, hasPending := tc.PendingCarryover()
	if hasPending {
		hint.Pending = &pending
	}

	if err := checkReachable(tc, phase, current, hasCurrent, hasPending); err != nil {
		hint.Phase = Normal()
		hint.ExpectedSlot = ""
		return hint, err
	}
	if phase.Kind == PhaseAwaitSlotValue {
		hint.ExpectedSlot = phase.Slot
	}
	return hint, nil
}

func checkReachable(tc *statex.TripContext, phase Phase, current bookingx.Intent, hasCurrent, hasPending bool) error {
	switch phase.Kind {
	case PhaseCarryover:
		if !hasPending {
			return fmt.Errorf("%w: %s without a pending carryover", ErrUnreachableState, phase)
		}
	case PhaseAwaitConfirmation:
		last, _ := tc.LastAction()
		switch {
		case !hasCurrent || last.Intent != current:
			return fmt.Errorf("%w: %s for %s while current intent is %q", ErrUnreachableState, phase, last.Intent, current)
		case tc.IsCompleted(current):
			return fmt.Errorf("%w: %s for completed %s", ErrUnreachableState, phase, current)
		}
	case PhaseAwaitCorrectedSlot:
		if !hasCurrent {
			return fmt.Errorf("%w: %s without a current intent", ErrUnreachableState, phase)
		}
	case PhaseAwaitSlotValue:
		if !hasCurrent {
			return fmt.Errorf("%w: %s without a current intent", ErrUnreachableState, phase)
		}
		if !lo.Contains(tc.MissingRequiredSlots(current), phase.Slot) {
			return fmt.Errorf("%w: %s but %s no longer misses it", ErrUnreachableState, phase, current)
		}
	}
	return nil
}
