package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/booking"
	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

func LoadOrCreateState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	schema *bookingx.Schema,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	st, err := loadOrCreateState(ctx, store, schema, in.SessionID, in.Now)
	if err != nil {
		return nil, err
	}
	in.Session = st
	return in, nil
}

func loadOrCreateState(
	ctx context.Context,
	store statex.Store,
	schema *bookingx.Schema,
	sessionID string,
	now time.Time,
) (*statex.SessionState, error) {
	st, err := store.Load(ctx, sessionID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, statex.ErrStateNotFound) {
		return nil, err
	}

	logger().Debug().Str("session_id", sessionID).Msg("starting new conversation")
	return statex.NewSessionState(sessionID, schema, now), nil
}
