package agent

import (
	"fmt"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/flow"
	"github.com/tickerdesk/tickerdesk/hook"
	"github.com/tickerdesk/tickerdesk/model"
	"github.com/tickerdesk/tickerdesk/tool"
)

// ModelAgentOptions configures a ModelAgent instance. Use functional options
// with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Description              string
	Instruction              Instruction
	EnableStreaming          bool
	OutputKey                string
	MaxHistoryMessages       int
	AllowTransfer            bool
	DisallowTransferToParent bool
	DisallowTransferToPeers  bool
	Tools                    map[string]tool.Tool
	Hooks                    hook.Hooks
}

// ModelAgent is a conversational agent driven by a language model. It
// supports function calling with registered tools, lifecycle hooks at the
// agent/model/tool boundaries, session state output keys and hierarchical
// delegation governed by an explicit policy: sub-agents are always permitted
// transfer targets, parent and peers only unless disallowed.
type ModelAgent struct {
	BaseAgent
	llm                      model.Model
	instruction              Instruction
	tools                    map[string]tool.Tool
	hooks                    hook.Hooks
	enableStreaming          bool
	outputKey                string
	maxHistoryMessages       int
	allowTransfer            bool
	disallowTransferToParent bool
	disallowTransferToPeers  bool
}

// NewModelAgent creates a model-based agent. Defaults: generic assistant
// instruction, streaming off, 20-message history window, transfers allowed
// in all directions.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful assistant.", name)),
		MaxHistoryMessages: 20,
		AllowTransfer:      true,
		Tools:              make(map[string]tool.Tool),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	a := &ModelAgent{
		BaseAgent:                NewBaseAgent(name),
		llm:                      llm,
		instruction:              opts.Instruction,
		tools:                    opts.Tools,
		hooks:                    opts.Hooks,
		enableStreaming:          opts.EnableStreaming,
		outputKey:                opts.OutputKey,
		maxHistoryMessages:       opts.MaxHistoryMessages,
		allowTransfer:            opts.AllowTransfer,
		disallowTransferToParent: opts.DisallowTransferToParent,
		disallowTransferToPeers:  opts.DisallowTransferToPeers,
	}

	if opts.Description != "" {
		a.SetDescription(opts.Description)
	}
	if a.tools == nil {
		a.tools = make(map[string]tool.Tool)
	}

	return a
}

// RegisterTool adds a tool to the agent's capability set.
func (a *ModelAgent) RegisterTool(t tool.Tool) { a.tools[t.Name()] = t }

// RegisterTools adds multiple tools to the agent's capability set.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// HasTool reports whether a tool is registered with the agent.
func (a *ModelAgent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string { return a.Name() }

// GetModel returns the language model driving this agent.
func (a *ModelAgent) GetModel() model.Model { return a.llm }

// GetTools returns a copy of the registered tools.
func (a *ModelAgent) GetTools() map[string]tool.Tool {
	tools := make(map[string]tool.Tool, len(a.tools))
	for name, t := range a.tools {
		tools[name] = t
	}
	return tools
}

// GetSubAgents returns the child agents that participate in flows.
func (a *ModelAgent) GetSubAgents() []flow.FlowAgent {
	subAgents := a.SubAgents()
	flowAgents := make([]flow.FlowAgent, 0, len(subAgents))
	for _, subAgent := range subAgents {
		if flowAgent, ok := subAgent.(flow.FlowAgent); ok {
			flowAgents = append(flowAgents, flowAgent)
		}
	}
	return flowAgents
}

// GetHooks returns the lifecycle hooks registered on this agent.
func (a *ModelAgent) GetHooks() hook.Hooks { return a.hooks }

// IsStreamingEnabled reports whether partial responses are streamed.
func (a *ModelAgent) IsStreamingEnabled() bool { return a.enableStreaming }

// IsTransferEnabled reports whether this agent may hand off at all.
func (a *ModelAgent) IsTransferEnabled() bool { return a.allowTransfer }

// GetOutputKey returns the session state key for saving final responses.
func (a *ModelAgent) GetOutputKey() string { return a.outputKey }

// MaxHistoryMessages returns the conversation history window size.
func (a *ModelAgent) MaxHistoryMessages() int { return a.maxHistoryMessages }

// ResolveInstructions produces the system prompt for the current run.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// PermittedTransferTargets lists the agents this agent may hand control to:
// all sub-agents, plus the parent and its other children when the respective
// direction is not disallowed.
func (a *ModelAgent) PermittedTransferTargets() []flow.TransferTarget {
	if !a.allowTransfer {
		return nil
	}

	var targets []flow.TransferTarget
	seen := map[string]bool{a.Name(): true}

	add := func(ag core.Agent) {
		if ag == nil || seen[ag.Name()] {
			return
		}
		seen[ag.Name()] = true
		targets = append(targets, flow.TransferTarget{Name: ag.Name(), Description: ag.Description()})
	}

	for _, sub := range a.SubAgents() {
		add(sub)
	}

	parent := a.Parent()
	if parent == nil {
		return targets
	}

	if !a.disallowTransferToParent {
		add(parent)
	}
	if !a.disallowTransferToPeers {
		for _, peer := range parent.SubAgents() {
			add(peer)
		}
	}

	return targets
}

// TransferToAgent delegates execution to a named agent using the same run
// (shared session, emit channel). The target must be a permitted transfer
// target under this agent's delegation policy.
func (a *ModelAgent) TransferToAgent(runCtx *core.RunContext, agentName string) error {
	permitted := false
	for _, t := range a.PermittedTransferTargets() {
		if t.Name == agentName {
			permitted = true
			break
		}
	}
	if !permitted {
		return fmt.Errorf("transfer to agent '%s' not permitted from '%s'", agentName, a.Name())
	}

	target := a.resolveAgent(agentName)
	if target == nil {
		return fmt.Errorf("agent '%s' not found in hierarchy", agentName)
	}

	runCtx.LogInfo("agent.transfer", "from_agent", a.Name(), "to_agent", agentName)

	return target.Run(runCtx.WithAgent(core.AgentInfo{Name: agentName, Type: "model"}))
}

// resolveAgent searches the whole hierarchy for the named agent, starting
// from the root of the tree this agent belongs to.
func (a *ModelAgent) resolveAgent(name string) core.Agent {
	var root core.Agent = a
	for root.Parent() != nil {
		root = root.Parent()
	}
	return root.FindAgent(name)
}

// Run implements core.Agent: before-agent hooks, flow execution with event
// forwarding, after-agent hooks. A before-agent override skips the agent body
// entirely and is emitted as the agent's final output.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name(), "run", runCtx.RunID)

	hctx := hook.NewContext(runCtx)

	if override := a.hooks.RunBeforeAgent(hctx); override != nil {
		runCtx.LogDebug("agent.run.short_circuit", "agent", a.Name())
		return a.emitContent(runCtx, override)
	}

	fl := flow.NewSelector().SelectFlow(a)

	runCtx.LogDebug("agent.flow.selected", "agent", a.Name(), "flow", fmt.Sprintf("%T", fl))

	eventChan, err := fl.Execute(runCtx)
	if err != nil {
		runCtx.LogError("agent.flow.execute.error", "agent", a.Name(), "error", err.Error())
		return fmt.Errorf("flow execution failed: %w", err)
	}

	for event := range eventChan {
		select {
		case runCtx.Emit <- event:
			runCtx.LogDebug(
				"agent.event.forward",
				"agent", a.Name(),
				"event_id", event.ID,
				"fn_calls", len(event.GetFunctionCalls()),
			)
		case <-runCtx.Done():
			runCtx.LogWarn("agent.run.context_done", "agent", a.Name(), "error", runCtx.Err())
			return runCtx.Err()
		}
	}

	if override := a.hooks.RunAfterAgent(hctx); override != nil {
		return a.emitContent(runCtx, override)
	}

	runCtx.LogDebug("agent.run.complete", "agent", a.Name())

	return nil
}

// emitContent sends a hook-produced content as a complete assistant event,
// honoring the runner's persistence handshake.
func (a *ModelAgent) emitContent(runCtx *core.RunContext, content *core.Content) error {
	ev := core.NewEvent(runCtx.RunID, a.Name())
	ev.Content = content
	partial := false
	complete := true
	ev.Partial = &partial
	ev.TurnComplete = &complete

	select {
	case runCtx.Emit <- ev:
	case <-runCtx.Done():
		return runCtx.Err()
	}

	if runCtx.Resume != nil {
		select {
		case <-runCtx.Resume:
		case <-runCtx.Done():
			return runCtx.Err()
		}
	}

	return nil
}
