package nodes

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
)

func RenderReply(
	ctx context.Context,
	in *GraphState,
	generator contractx.Generator,
) (*GraphState, error) {
	if in == nil || in.Session == nil || in.Session.Trip == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	reply, err := generator.Generate(ctx, contractx.GenerateRequest{
		Action:  in.Decision.Action,
		Summary: in.Session.Trip.Summary(),
		Booking: in.Booking,
	})
	if err != nil {
		return nil, fmt.Errorf("render reply: %w", err)
	}
	in.Reply = strings.TrimSpace(reply)
	if in.Reply == "" {
		return nil, fmt.Errorf("%w: empty reply for %s", contractx.ErrGenerate, in.Decision.Action)
	}
	return in, nil
}
