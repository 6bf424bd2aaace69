// Package flow provides the model-call execution pipeline for agents.
//
// A flow drives the request -> model -> tool loop of one agent turn, with
// pluggable request processors (instructions, conversation history, transfer
// tool injection) and lifecycle hooks dispatched around the model and tool
// boundaries.
package flow

import (
	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/hook"
	"github.com/tickerdesk/tickerdesk/model"
	"github.com/tickerdesk/tickerdesk/tool"
)

// Flow executes an agent turn and streams progress as events.
type Flow interface {
	// Execute runs the flow for the given run context. The returned channel
	// is closed when the turn completes or fails.
	Execute(runCtx *core.RunContext) (<-chan core.Event, error)
}

// TransferTarget names an agent the current agent may hand control to.
type TransferTarget struct {
	Name        string
	Description string
}

// FlowAgent is the view of an agent required by flows. It exposes the model,
// instruction resolution, tools, hooks and delegation policy without leaking
// the full agent implementation.
type FlowAgent interface {
	// GetName returns the agent's display name.
	GetName() string

	// GetModel returns the language model driving this agent.
	GetModel() model.Model

	// ResolveInstructions produces the system prompt for the current run.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// GetTools returns the registered tools for function calling.
	GetTools() map[string]tool.Tool

	// GetSubAgents returns the child agents.
	GetSubAgents() []FlowAgent

	// GetHooks returns the lifecycle hooks registered on this agent.
	GetHooks() hook.Hooks

	// IsStreamingEnabled reports whether partial responses are streamed.
	IsStreamingEnabled() bool

	// IsTransferEnabled reports whether this agent may hand off at all.
	IsTransferEnabled() bool

	// PermittedTransferTargets lists the agents this agent may transfer to
	// under its delegation policy (sub-agents always; parent and peers only
	// when not disallowed).
	PermittedTransferTargets() []TransferTarget

	// GetOutputKey returns the session state key for saving final responses.
	GetOutputKey() string

	// MaxHistoryMessages returns the conversation history window size.
	MaxHistoryMessages() int

	// TransferToAgent runs the named agent with the current run context.
	TransferToAgent(runCtx *core.RunContext, agentName string) error
}

// RequestProcessor mutates the model request before generation.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before model execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor handles each model response before it is emitted.
type ResponseProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessResponse inspects or adjusts the model response.
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
