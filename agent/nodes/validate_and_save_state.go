package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

// ValidateAndSaveState records the exchange in the history and persists the
// session. It runs last, so a turn that failed earlier saves nothing beyond
// what PersistCompletion already stored.
func ValidateAndSaveState(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	maxHistory int,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.AppendHistory(maxHistory,
		schema.UserMessage(in.Text),
		schema.AssistantMessage(in.Reply, nil),
	)
	in.Session.Turns++
	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, err
	}

	return in, nil
}

// PersistCompletion saves a newly completed booking before the booking API is
// called. If rendering or saving fails later in the turn, the booking stays
// completed, so retrying the turn cannot book it twice. History and the turn
// counter are left to ValidateAndSaveState.
func PersistCompletion(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.Touch(in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("state validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("persist completion: %w", err)
	}
	return in, nil
}
