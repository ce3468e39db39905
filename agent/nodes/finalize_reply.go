package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Trip-Booking-Dialogue/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: generator returned empty reply", contractx.ErrValidation)
	}
	return GraphOutput{
		Reply:  reply,
		Action: in.Decision.Action,
		Phase:  in.Hint.Phase,
	}, nil
}
