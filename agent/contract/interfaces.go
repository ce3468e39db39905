package contract

import (
	"context"

	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
)

// Understander is the external NLU collaborator.
type Understander interface {
	Understand(ctx context.Context, req UnderstandRequest) (Understanding, error)
}

// Generator is the external NLG collaborator.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// BookingAPI places a reservation once an intent is complete.
type BookingAPI interface {
	Book(ctx context.Context, intent bookingx.Intent, slots map[string]string) (BookingReceipt, error)
}
