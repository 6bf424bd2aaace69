package flow

// Selector picks the flow implementation matching an agent's capabilities.
type Selector struct{}

// NewSelector creates a new flow selector.
func NewSelector() *Selector { return &Selector{} }

// SelectFlow chooses SingleAgentFlow for isolated agents and MultiAgentFlow
// for agents that may delegate or carry sub-agents.
func (s *Selector) SelectFlow(agent FlowAgent) Flow {
	if !agent.IsTransferEnabled() && len(agent.GetSubAgents()) == 0 {
		return NewSingleAgentFlow(agent)
	}
	return NewMultiAgentFlow(agent)
}
