// Package policy holds the decision engine: a fixed, short-circuiting rule
// chain that turns one validated NLU result into the next control action.
package policy

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/carryover"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

// Input is the typed NLU result for one turn.
type Input struct {
	Intent      *bookingx.Intent
	Slots       map[string]string
	OutOfDomain bool
	Affirm      *bool
}

type Decision struct {
	Action actionx.Action
	// Completed is true only on the turn that first marks Action.Intent complete.
	Completed bool
}

type Option func(*Engine)

// WithReconfirmAfterCorrection asks for confirmation again once a denied
// booking has been corrected, instead of completing it straight away.
func WithReconfirmAfterCorrection(enabled bool) Option {
	return func(e *Engine) {
		e.reconfirmAfterCorrection = enabled
	}
}

// Engine is stateless apart from its options and safe to share between
// conversations.
type Engine struct {
	reconfirmAfterCorrection bool
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Decide applies in to tc and returns the next action. The rule chain runs on
// a copy of tc that replaces it only when the whole turn succeeds, so on
// error tc is exactly as it was.
func (e *Engine) Decide(tc *statex.TripContext, in Input) (Decision, error) {
	if tc == nil {
		return Decision{}, statex.ErrNilTripContext
	}
	work := tc.Clone()
	d, err := e.decide(work, in)
	if err != nil {
		return Decision{}, err
	}
	work.SetLastAction(d.Action)
	*tc = *work
	return d, nil
}

func (e *Engine) decide(tc *statex.TripContext, in Input) (Decision, error) {
	// 1. out of domain
	if in.OutOfDomain {
		return Decision{Action: actionx.HandleOOD()}, nil
	}

	// 2. answer to a pending question
	if p, ok := tc.PendingCarryover(); ok {
		slots := declaredOnly(tc.Schema(), p.Target, in.Slots)
		if in.Affirm == nil {
			return e.reofferCarryover(tc, p, slots)
		}
		return e.answerCarryover(tc, p, *in.Affirm, slots)
	}
	current, hasCurrent := tc.CurrentIntent()
	if hasCurrent && in.Affirm != nil && !tc.IsCompleted(current) &&
		tc.Confirmation(current) == statex.ConfirmationAsked {
		return e.answerConfirmation(tc, current, *in.Affirm, declaredOnly(tc.Schema(), current, in.Slots))
	}

	if in.Intent == nil && !hasCurrent {
		return Decision{Action: actionx.HandleOOD()}, nil
	}

	// 3. intent switch
	if in.Intent != nil && (!hasCurrent || *in.Intent != current) {
		return e.switchIntent(tc, current, hasCurrent, *in.Intent, in.Slots)
	}

	// 4 and 5
	return e.fillOrConfirm(tc, current, in.Slots)
}

// reofferCarryover keeps the slots the user gave without answering the offer.
// A value of their own for the offered slot settles the offer.
func (e *Engine) reofferCarryover(tc *statex.TripContext, p statex.PendingCarryover, slots map[string]string) (Decision, error) {
	if err := mergeSlots(tc, p.Target, slots); err != nil {
		return Decision{}, err
	}
	if !tc.GetBooking(p.Target).IsSet(p.Slot) {
		return Decision{Action: actionx.OfferSlotCarryover(p.Slot, p.Value)}, nil
	}
	tc.ClearPendingCarryover()
	if err := tc.SetCurrentIntent(p.Target); err != nil {
		return Decision{}, err
	}
	return e.fillOrConfirm(tc, p.Target, nil)
}

func (e *Engine) answerCarryover(tc *statex.TripContext, p statex.PendingCarryover, affirm bool, slots map[string]string) (Decision, error) {
	tc.ClearPendingCarryover()
	if err := tc.SetCurrentIntent(p.Target); err != nil {
		return Decision{}, err
	}
	if !affirm {
		if err := mergeSlots(tc, p.Target, slots); err != nil {
			return Decision{}, err
		}
		if tc.GetBooking(p.Target).IsSet(p.Slot) {
			return e.fillOrConfirm(tc, p.Target, nil)
		}
		return Decision{Action: actionx.HandleDenial(p.Slot)}, nil
	}
	if err := tc.SetSlot(p.Target, p.Slot, p.Value); err != nil {
		return Decision{}, fmt.Errorf("apply carryover: %w", err)
	}
	return e.fillOrConfirm(tc, p.Target, slots)
}

// answerConfirmation never clears a slot. A "no" that names new values is a
// correction; a bare "no" keeps the booking and asks what to change.
func (e *Engine) answerConfirmation(tc *statex.TripContext, intent bookingx.Intent, affirm bool, slots map[string]string) (Decision, error) {
	if affirm {
		tc.SetConfirmation(intent, statex.ConfirmationAffirmed)
		return e.fillOrConfirm(tc, intent, slots)
	}

	tc.SetConfirmation(intent, statex.ConfirmationDenied)
	if len(slots) > 0 {
		return e.fillOrConfirm(tc, intent, slots)
	}
	return Decision{Action: actionx.HandleDenial(tc.Schema().Required(intent)[0])}, nil
}

// declaredOnly drops the slots intent does not declare. An answer to a
// pending question lands in that question's booking, whatever intent the
// NLU reported alongside it.
func declaredOnly(schema *bookingx.Schema, intent bookingx.Intent, slots map[string]string) map[string]string {
	return lo.PickBy(slots, func(slot string, _ string) bool {
		return schema.IsDeclared(intent, slot)
	})
}

func (e *Engine) switchIntent(tc *statex.TripContext, previous bookingx.Intent, hasPrevious bool, target bookingx.Intent, slots map[string]string) (Decision, error) {
	targetDone := tc.IsCompleted(target)
	if !targetDone {
		if err := mergeSlots(tc, target, slots); err != nil {
			return Decision{}, err
		}
	}
	if hasPrevious && !tc.IsCompleted(previous) {
		tc.SetConfirmation(previous, statex.ConfirmationNone)
	}
	if err := tc.SetCurrentIntent(target); err != nil {
		return Decision{}, err
	}

	if !targetDone {
		if c, ok := carryover.FindAny(tc.Schema(), tc, target); ok {
			tc.SetPendingCarryover(statex.PendingCarryover{
				Slot:   c.Slot,
				Value:  c.Value,
				Source: c.Source,
				Target: c.Target,
			})
			return Decision{Action: actionx.OfferSlotCarryover(c.Slot, c.Value)}, nil
		}
	}
	return e.fillOrConfirm(tc, target, nil)
}

func (e *Engine) fillOrConfirm(tc *statex.TripContext, intent bookingx.Intent, slots map[string]string) (Decision, error) {
	if tc.IsCompleted(intent) {
		return Decision{Action: actionx.CompleteBooking(intent)}, nil
	}

	// 4. missing required slot
	if err := mergeSlots(tc, intent, slots); err != nil {
		return Decision{}, err
	}
	if slot, ok := tc.MissingRequiredSlot(intent); ok {
		return Decision{Action: actionx.RequestMissingSlot(slot)}, nil
	}

	// 5. confirmation and completion
	switch tc.Confirmation(intent) {
	case statex.ConfirmationAffirmed:
		return e.complete(tc, intent), nil
	case statex.ConfirmationDenied:
		// nothing corrected yet, so the old values are confirmed again
		if len(slots) > 0 && !e.reconfirmAfterCorrection {
			return e.complete(tc, intent), nil
		}
	}
	tc.SetConfirmation(intent, statex.ConfirmationAsked)
	return Decision{Action: actionx.AskConfirmation(intent)}, nil
}

func (e *Engine) complete(tc *statex.TripContext, intent bookingx.Intent) Decision {
	tc.SetConfirmation(intent, statex.ConfirmationNone)
	return Decision{
		Action:    actionx.CompleteBooking(intent),
		Completed: tc.MarkCompleted(intent),
	}
}

// mergeSlots writes slots in sorted key order so the first invalid slot is
// always the same one.
func mergeSlots(tc *statex.TripContext, intent bookingx.Intent, slots map[string]string) error {
	keys := lo.Keys(slots)
	slices.Sort(keys)
	for _, k := range keys {
		if err := tc.SetSlot(intent, k, slots[k]); err != nil {
			return err
		}
	}
	return nil
}
