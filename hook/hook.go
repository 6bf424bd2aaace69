// Package hook implements lifecycle hooks around agent, model and tool
// execution. Hooks observe (and optionally override) the six interception
// points of a model agent's loop: before/after agent, before/after model and
// before/after tool. A nil return always means "proceed unmodified"; a
// non-nil return overrides the default and skips the remaining hooks of that
// point. Hooks must never break a run: panics are recovered and logged, and
// no error crosses the hook boundary.
package hook

import (
	"context"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/logging"
	"github.com/tickerdesk/tickerdesk/model"
)

// Context is the read-mostly view handed to every hook invocation. It exposes
// the identity of the running agent, the run/session ids and a merged state
// snapshot without granting hooks mutable access to the run itself.
type Context struct {
	rc *core.RunContext
}

// NewContext wraps a run context for hook consumption.
func NewContext(rc *core.RunContext) *Context { return &Context{rc: rc} }

// Context returns the ambient cancellation context of the run.
func (c *Context) Context() context.Context { return c.rc.Context }

// AgentName returns the name of the agent whose lifecycle is being observed.
func (c *Context) AgentName() string { return c.rc.GetAgentName() }

// RunID returns the run identifier.
func (c *Context) RunID() string { return c.rc.RunID }

// SessionID returns the session identifier.
func (c *Context) SessionID() string { return c.rc.SessionID }

// Logger returns the run's logger (never nil).
func (c *Context) Logger() logging.Logger { return c.rc.Logger() }

// StateSnapshot returns a copy of the current session state merged with the
// run's staged delta.
func (c *Context) StateSnapshot() map[string]any { return c.rc.StateSnapshot() }

// BeforeAgent runs before an agent begins processing. A non-nil Content is
// emitted as the agent's final output and the agent body is skipped.
type BeforeAgent func(hctx *Context) *core.Content

// AfterAgent runs after an agent finished. A non-nil Content is emitted as an
// additional, overriding output event.
type AfterAgent func(hctx *Context) *core.Content

// BeforeModel runs before each model call. A non-nil Response is used in
// place of calling the provider.
type BeforeModel func(hctx *Context, req *model.Request) *model.Response

// AfterModel runs after each model call with the (final, non-partial)
// response. A non-nil Response replaces the model's response for all
// downstream processing.
type AfterModel func(hctx *Context, resp *model.Response) *model.Response

// BeforeTool runs before a tool executes. A non-nil map replaces the call
// arguments.
type BeforeTool func(hctx *Context, toolName string, args map[string]any) map[string]any

// AfterTool runs after a tool executed. A non-nil value replaces the tool
// result.
type AfterTool func(hctx *Context, toolName string, args map[string]any, result any) any

// Hooks bundles the hooks registered on an agent. Hooks of one point run
// sequentially in registration order; the first non-nil override wins and
// short-circuits the rest of that point.
type Hooks struct {
	BeforeAgent []BeforeAgent
	AfterAgent  []AfterAgent
	BeforeModel []BeforeModel
	AfterModel  []AfterModel
	BeforeTool  []BeforeTool
	AfterTool   []AfterTool
}

// Merge returns a bundle running h's hooks first, then o's.
func (h Hooks) Merge(o Hooks) Hooks {
	return Hooks{
		BeforeAgent: append(append([]BeforeAgent{}, h.BeforeAgent...), o.BeforeAgent...),
		AfterAgent:  append(append([]AfterAgent{}, h.AfterAgent...), o.AfterAgent...),
		BeforeModel: append(append([]BeforeModel{}, h.BeforeModel...), o.BeforeModel...),
		AfterModel:  append(append([]AfterModel{}, h.AfterModel...), o.AfterModel...),
		BeforeTool:  append(append([]BeforeTool{}, h.BeforeTool...), o.BeforeTool...),
		AfterTool:   append(append([]AfterTool{}, h.AfterTool...), o.AfterTool...),
	}
}

// guard runs fn recovering any panic so a misbehaving hook cannot abort the run.
func guard(hctx *Context, point string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			hctx.Logger().Error("hook.panic", "point", point, "agent", hctx.AgentName(), "panic", r)
		}
	}()
	fn()
}

// RunBeforeAgent dispatches all before-agent hooks; first override wins.
func (h Hooks) RunBeforeAgent(hctx *Context) *core.Content {
	for _, fn := range h.BeforeAgent {
		var out *core.Content
		guard(hctx, "before_agent", func() { out = fn(hctx) })
		if out != nil {
			return out
		}
	}
	return nil
}

// RunAfterAgent dispatches all after-agent hooks; first override wins.
func (h Hooks) RunAfterAgent(hctx *Context) *core.Content {
	for _, fn := range h.AfterAgent {
		var out *core.Content
		guard(hctx, "after_agent", func() { out = fn(hctx) })
		if out != nil {
			return out
		}
	}
	return nil
}

// RunBeforeModel dispatches all before-model hooks; first override wins.
func (h Hooks) RunBeforeModel(hctx *Context, req *model.Request) *model.Response {
	for _, fn := range h.BeforeModel {
		var out *model.Response
		guard(hctx, "before_model", func() { out = fn(hctx, req) })
		if out != nil {
			return out
		}
	}
	return nil
}

// RunAfterModel dispatches all after-model hooks; first override wins.
func (h Hooks) RunAfterModel(hctx *Context, resp *model.Response) *model.Response {
	for _, fn := range h.AfterModel {
		var out *model.Response
		guard(hctx, "after_model", func() { out = fn(hctx, resp) })
		if out != nil {
			return out
		}
	}
	return nil
}

// RunBeforeTool dispatches all before-tool hooks; first override wins.
func (h Hooks) RunBeforeTool(hctx *Context, toolName string, args map[string]any) map[string]any {
	for _, fn := range h.BeforeTool {
		var out map[string]any
		guard(hctx, "before_tool", func() { out = fn(hctx, toolName, args) })
		if out != nil {
			return out
		}
	}
	return nil
}

// RunAfterTool dispatches all after-tool hooks; first override wins.
func (h Hooks) RunAfterTool(hctx *Context, toolName string, args map[string]any, result any) any {
	for _, fn := range h.AfterTool {
		var out any
		guard(hctx, "after_tool", func() { out = fn(hctx, toolName, args, result) })
		if out != nil {
			return out
		}
	}
	return nil
}
