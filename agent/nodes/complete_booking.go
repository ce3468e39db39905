package nodes

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
)

// CompleteBooking places the reservation for an intent completed on this
// turn. A failed call is reported to the reply and logged; the booking stays
// completed.
func CompleteBooking(
	ctx context.Context,
	in *GraphState,
	api contractx.BookingAPI,
) (*GraphState, error) {
	if in == nil || in.Session == nil || in.Session.Trip == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if !in.Decision.Completed {
		return in, nil
	}

	intent := in.Decision.Action.Intent
	outcome := &contractx.BookingOutcome{Intent: intent}
	receipt, err := api.Book(ctx, intent, in.Session.Trip.GetBooking(intent).Values())
	if err != nil {
		err = fmt.Errorf("%w: %w", contractx.ErrBookingFailed, err)
		logger().Error().
			Err(err).
			Str("session_id", in.SessionID).
			Str("intent", string(intent)).
			Msg("booking api call failed")
		outcome.Err = err.Error()
	} else {
		outcome.Receipt = receipt
		logger().Info().
			Str("session_id", in.SessionID).
			Str("intent", string(intent)).
			Str("reference", receipt.Reference).
			Msg("booking placed")
	}
	in.Booking = outcome
	return in, nil
}
