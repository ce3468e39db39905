package contract

import (
	"github.com/cloudwego/eino/schema"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/dst"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

type UnderstandRequest struct {
	Text    string            `json:"text"`
	Hint    dst.Hint          `json:"hint"`
	History []*schema.Message `json:"history,omitempty"`
}

// Understanding is the raw NLU output. Slots is untyped and must go through
// policy.NormalizeInput before it reaches the decision engine.
type Understanding struct {
	Intent      string         `json:"intent,omitempty"`
	Slots       map[string]any `json:"slots,omitempty"`
	OutOfDomain bool           `json:"out_of_domain,omitempty"`
	Affirm      *bool          `json:"affirm,omitempty"`
}

type GenerateRequest struct {
	Action  actionx.Action  `json:"action"`
	Summary statex.Summary  `json:"summary"`
	Booking *BookingOutcome `json:"booking,omitempty"`
}

// BookingOutcome reports the booking API call made on this turn, if any.
type BookingOutcome struct {
	Intent  bookingx.Intent `json:"intent"`
	Receipt BookingReceipt  `json:"receipt,omitempty"`
	Err     string          `json:"error,omitempty"`
}

func (o *BookingOutcome) Failed() bool {
	return o != nil && o.Err != ""
}

type BookingReceipt struct {
	Reference string `json:"reference"`
}
