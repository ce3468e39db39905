package nodes

import (
	"fmt"

	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/dst"
)

// TrackState derives the NLU hint from the last action. An unreachable phase
// is logged and the turn continues with the NORMAL hint Track falls back to.
func TrackState(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	hint, err := dst.Track(in.Session.Trip)
	if err != nil {
		logger().Warn().
			Err(err).
			Str("session_id", in.SessionID).
			Msg("dialogue state unreachable, falling back to normal phase")
	}
	in.Hint = hint
	return in, nil
}
