package conversationnode

import (
	"fmt"

	contractx "github.com/cememirsenyurt/subconscious/agent/contract"
)

// FinalizeReply records the agent's turn and produces the graph output.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil || in.Session == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if in.Reply == "" {
		in.Reply = fallbackFailed
	}

	in.Session.AppendTurn(contractx.RoleAgent, in.Reply, in.Now)
	return GraphOutput{Reply: in.Reply}, nil
}
