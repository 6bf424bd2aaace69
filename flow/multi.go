package flow

// MultiAgentFlow orchestrates an agent that may call tools and hand control
// off to other agents in its hierarchy. It extends the single-agent pipeline
// with transfer tool injection.
type MultiAgentFlow struct{ *BaseFlow }

// NewMultiAgentFlow creates a flow with the default multi-agent processors.
func NewMultiAgentFlow(agent FlowAgent) *MultiAgentFlow {
	baseFlow := NewBaseFlow(agent)

	baseFlow.AddRequestProcessor(NewInstructionsProcessor())
	baseFlow.AddRequestProcessor(NewContentsProcessor())
	baseFlow.AddRequestProcessor(NewTransferToolInjector())

	return &MultiAgentFlow{BaseFlow: baseFlow}
}
