// Package action defines the closed set of control actions the decision
// engine emits, and their textual TAG(arg) encoding.
package action

import (
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
)

type Kind string

const (
	KindHandleOOD          Kind = "HANDLE_OOD"
	KindOfferSlotCarryover Kind = "OFFER_SLOT_CARRYOVER"
	KindAskConfirmation    Kind = "ASK_CONFIRMATION"
	KindHandleDenial       Kind = "HANDLE_DENIAL"
	KindRequestMissingSlot Kind = "REQUEST_MISSING_SLOT"
	KindCompleteBooking    Kind = "COMPLETE_BOOKING"
)

// Kinds lists every action kind.
var Kinds = []Kind{
	KindHandleOOD,
	KindOfferSlotCarryover,
	KindAskConfirmation,
	KindHandleDenial,
	KindRequestMissingSlot,
	KindCompleteBooking,
}

type payload int

const (
	payloadNone payload = iota
	payloadSlot
	payloadSlotValue
	payloadIntent
)

func (k Kind) payload() (payload, bool) {
	switch k {
	case KindHandleOOD:
		return payloadNone, true
	case KindOfferSlotCarryover:
		return payloadSlotValue, true
	case KindAskConfirmation, KindCompleteBooking:
		return payloadIntent, true
	case KindHandleDenial, KindRequestMissingSlot:
		return payloadSlot, true
	default:
		return payloadNone, false
	}
}

func (k Kind) Valid() bool {
	_, ok := k.payload()
	return ok
}

// Action is a tagged variant. Only the fields of its Kind are meaningful:
//
//	HANDLE_OOD                   none
//	OFFER_SLOT_CARRYOVER         Slot, Value
//	ASK_CONFIRMATION             Intent
//	HANDLE_DENIAL                Slot
//	REQUEST_MISSING_SLOT         Slot
//	COMPLETE_BOOKING             Intent
type Action struct {
	Kind   Kind
	Slot   string
	Value  string
	Intent bookingx.Intent
}

func HandleOOD() Action {
	return Action{Kind: KindHandleOOD}
}

func OfferSlotCarryover(slot, value string) Action {
	return Action{Kind: KindOfferSlotCarryover, Slot: slot, Value: value}
}

func AskConfirmation(intent bookingx.Intent) Action {
	return Action{Kind: KindAskConfirmation, Intent: intent}
}

func HandleDenial(slot string) Action {
	return Action{Kind: KindHandleDenial, Slot: slot}
}

func RequestMissingSlot(slot string) Action {
	return Action{Kind: KindRequestMissingSlot, Slot: slot}
}

func CompleteBooking(intent bookingx.Intent) Action {
	return Action{Kind: KindCompleteBooking, Intent: intent}
}

// Validate checks that a carries exactly the payload its Kind requires.
func (a Action) Validate() error {
	p, ok := a.Kind.payload()
	if !ok {
		return malformed(string(a.Kind), "unknown action tag")
	}
	switch p {
	case payloadNone:
		if a.Slot != "" || a.Value != "" || a.Intent != "" {
			return malformed(string(a.Kind), "unexpected argument")
		}
	case payloadSlot:
		if !bookingx.ValidSlotName(a.Slot) {
			return malformed(string(a.Kind), "invalid slot name "+quote(a.Slot))
		}
		if a.Value != "" || a.Intent != "" {
			return malformed(string(a.Kind), "unexpected argument")
		}
	case payloadSlotValue:
		if !bookingx.ValidSlotName(a.Slot) {
			return malformed(string(a.Kind), "invalid slot name "+quote(a.Slot))
		}
		if a.Value == "" {
			return malformed(string(a.Kind), "empty value")
		}
		if a.Intent != "" {
			return malformed(string(a.Kind), "unexpected argument")
		}
	case payloadIntent:
		if !a.Intent.Valid() {
			return malformed(string(a.Kind), "unknown intent "+quote(string(a.Intent)))
		}
		if a.Slot != "" || a.Value != "" {
			return malformed(string(a.Kind), "unexpected argument")
		}
	}
	return nil
}

// String returns the textual encoding, or a diagnostic form for invalid actions.
func (a Action) String() string {
	text, err := Format(a)
	if err != nil {
		return "INVALID(" + string(a.Kind) + ")"
	}
	return text
}
