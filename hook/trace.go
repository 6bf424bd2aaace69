package hook

import (
	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/model"
)

// Tracer logs agent entry/exit with the current state snapshot and per-call
// token usage. It observes only: every method returns nil so the run is never
// altered. Register it before any overriding hook so its lines always appear.
type Tracer struct{}

// NewTracer returns a Tracer.
func NewTracer() *Tracer { return &Tracer{} }

// BeforeAgent logs the agent entering with its merged state snapshot.
func (t *Tracer) BeforeAgent(hctx *Context) *core.Content {
	hctx.Logger().Info("agent.enter",
		"agent", hctx.AgentName(),
		"run_id", hctx.RunID(),
		"state", hctx.StateSnapshot(),
	)
	return nil
}

// AfterAgent logs the agent exiting with its merged state snapshot.
func (t *Tracer) AfterAgent(hctx *Context) *core.Content {
	hctx.Logger().Info("agent.exit",
		"agent", hctx.AgentName(),
		"run_id", hctx.RunID(),
		"state", hctx.StateSnapshot(),
	)
	return nil
}

// AfterModel logs token usage for the completed model call. Responses without
// usage metadata produce no line.
func (t *Tracer) AfterModel(hctx *Context, resp *model.Response) *model.Response {
	if resp == nil || resp.Usage == nil {
		return nil
	}
	hctx.Logger().Info("model.usage",
		"agent", hctx.AgentName(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return nil
}
