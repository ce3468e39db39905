package nodes

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
)

// Understand calls the NLU with the user's text, the phase hint and recent
// history. Its errors abort the turn.
func Understand(
	ctx context.Context,
	in *GraphState,
	understander contractx.Understander,
) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	u, err := understander.Understand(ctx, contractx.UnderstandRequest{
		Text:    in.Text,
		Hint:    in.Hint,
		History: in.Session.History,
	})
	if err != nil {
		return nil, fmt.Errorf("understand turn: %w", err)
	}
	in.Understanding = u
	return in, nil
}
