package core

// Agent defines the contract all agents in the hierarchy must implement.
//
// Agents receive input through a RunContext, process it and emit events back
// to the runner through the context's emit channel. The hierarchy methods
// support multi-agent trees where a parent may hand work off to a child.
//
// Implementations must respect context cancellation and emit events through
// the provided RunContext.
type Agent interface {
	Name() string
	Description() string
	Start(runCtx *RunContext) error
	Stop(runCtx *RunContext) error
	Run(runCtx *RunContext) error
	SetSubAgents(children ...Agent) error
	SubAgents() []Agent
	Parent() Agent
	FindAgent(name string) Agent
}

// AgentInfo carries identifying details about an agent used in contexts &
// events. Name is the external identifier; Type categorizes the
// implementation (e.g. "dispatcher", "worker").
type AgentInfo struct{ Name, Type string }
