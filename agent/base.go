// Package agent provides the agent implementations: BaseAgent for shared
// lifecycle and hierarchy management, and ModelAgent for model-driven
// conversational agents with tools, hooks and delegation policy.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tickerdesk/tickerdesk/core"
)

// BaseAgent bundles shared lifecycle (Start/Stop), hierarchy management and
// identity helpers. Embed it in concrete agent implementations and supply a
// Run method to satisfy the core.Agent interface. All exported methods are
// goroutine-safe unless otherwise documented.
type BaseAgent struct {
	name        string
	description string
	mu          sync.Mutex
	cancel      context.CancelFunc
	running     bool
	parent      core.Agent
	subAgents   []core.Agent
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a description of this agent's purpose.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Start transitions the agent to running state. Only the first successful
// invocation changes state; calling Start while running returns an error.
func (b *BaseAgent) Start(runCtx *core.RunContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("agent is already running")
	}

	_, cancel := context.WithCancel(runCtx.Context)
	b.cancel = cancel
	b.running = true

	return nil
}

// Stop cancels the agent's derived context and marks it as not running.
// Returns an error if the agent was not running.
func (b *BaseAgent) Stop(_ *core.RunContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return errors.New("agent is not running")
	}

	if b.cancel != nil {
		b.cancel()
	}
	b.running = false

	return nil
}

// SetSubAgents atomically replaces the child agent set, clearing previous
// parent links then assigning this agent as the parent of each new child. A
// single-parent invariant holds for all managed children.
func (b *BaseAgent) SetSubAgents(children ...core.Agent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, child := range b.subAgents {
		if setter, ok := child.(interface{ setParent(core.Agent) }); ok {
			setter.setParent(nil)
		}
	}
	b.subAgents = nil

	for _, child := range children {
		if setter, ok := child.(interface{ setParent(core.Agent) }); ok {
			setter.setParent(&agentWrapper{b})
		}
		b.subAgents = append(b.subAgents, child)
	}

	return nil
}

// setParent sets the internal parent reference.
func (b *BaseAgent) setParent(p core.Agent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parent = p
}

// Parent returns the current parent agent, or nil for a root agent.
func (b *BaseAgent) Parent() core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parent
}

// SubAgents returns a shallow copy of the current child agents.
func (b *BaseAgent) SubAgents() []core.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	result := make([]core.Agent, len(b.subAgents))
	copy(result, b.subAgents)
	return result
}

// FindAgent performs a depth-first search over the subtree rooted at this
// agent (including itself), returning the first agent whose name matches, or
// nil if none does.
func (b *BaseAgent) FindAgent(name string) core.Agent {
	if b.name == name {
		return &agentWrapper{b}
	}

	for _, child := range b.SubAgents() {
		if child.Name() == name {
			return child
		}
		if found := child.FindAgent(name); found != nil {
			return found
		}
	}
	return nil
}

// agentWrapper wraps BaseAgent to satisfy core.Agent for hierarchy references.
type agentWrapper struct{ *BaseAgent }

// Run reports an error: BaseAgent must be embedded in a concrete agent.
func (w *agentWrapper) Run(_ *core.RunContext) error {
	return fmt.Errorf("cannot execute BaseAgent directly - embed it in a concrete agent with a Run implementation")
}
