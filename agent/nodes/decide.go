package nodes

import (
	"fmt"

	actionx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/action"
	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
	"github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/policy"
	statex "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/state"
)

// DecisionEngine is satisfied by *policy.Engine.
type DecisionEngine interface {
	Decide(tc *statex.TripContext, in policy.Input) (policy.Decision, error)
}

// Decide validates the NLU output against the schema and runs the engine.
// When the engine fails the trip is left as it was and the turn answers with
// HANDLE_OOD.
func Decide(in *GraphState, engine DecisionEngine) (*GraphState, error) {
	if in == nil || in.Session == nil || in.Session.Trip == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	trip := in.Session.Trip

	input, dropped := policy.NormalizeInput(trip.Schema(), policy.ScopeOf(trip), in.Understanding)
	if len(dropped) > 0 {
		logger().Debug().
			Str("session_id", in.SessionID).
			Strs("dropped", dropped).
			Msg("ignored nlu output outside the schema")
	}

	d, err := engine.Decide(trip, input)
	if err != nil {
		logger().Error().
			Err(err).
			Str("session_id", in.SessionID).
			Msg("decision engine failed, answering out of domain")
		d = policy.Decision{Action: actionx.HandleOOD()}
	}
	in.Decision = d
	return in, nil
}
