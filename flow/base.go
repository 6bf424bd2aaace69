package flow

import (
	"fmt"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/hook"
	"github.com/tickerdesk/tickerdesk/model"
	"github.com/tickerdesk/tickerdesk/tool"
)

// BaseFlow drives the request -> model -> tool loop for one agent with
// pluggable pre/post processors and hook dispatch around the model and tool
// boundaries.
type BaseFlow struct {
	agent              FlowAgent
	requestProcessors  []RequestProcessor
	responseProcessors []ResponseProcessor
	executor           FunctionExecutor
}

// NewBaseFlow creates a flow without processors; callers register them in
// execution order.
func NewBaseFlow(agent FlowAgent) *BaseFlow {
	return &BaseFlow{
		agent:              agent,
		requestProcessors:  []RequestProcessor{},
		responseProcessors: []ResponseProcessor{},
		executor:           NewFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true}),
	}
}

// AddRequestProcessor appends a request processor; registration order defines
// execution order.
func (f *BaseFlow) AddRequestProcessor(processor RequestProcessor) {
	f.requestProcessors = append(f.requestProcessors, processor)
}

// AddResponseProcessor appends a response processor executed on each final
// model response.
func (f *BaseFlow) AddResponseProcessor(processor ResponseProcessor) {
	f.responseProcessors = append(f.responseProcessors, processor)
}

// Execute launches the flow asynchronously and returns a channel of events.
// The channel is closed when a final response is emitted, control is handed
// off, or an unrecoverable error occurs.
func (f *BaseFlow) Execute(runCtx *core.RunContext) (<-chan core.Event, error) {
	eventChan := make(chan core.Event, 100)

	go func() {
		defer close(eventChan)

		for {
			last, transferred := f.runOnce(runCtx, eventChan)
			if transferred || last == nil {
				break
			}
			// A function response means the model gets another turn.
			if len(last.GetFunctionResponses()) > 0 {
				continue
			}
			if last.IsFinalResponse() {
				break
			}
			if last.IsPartial() {
				runCtx.LogWarn("flow.unexpected_partial_tail", "agent", f.agent.GetName())
				break
			}
		}
	}()

	return eventChan, nil
}

// emitError converts an internal error into a system event.
func (f *BaseFlow) emitError(eventChan chan<- core.Event, runCtx *core.RunContext, err error) {
	ev := core.NewEvent(runCtx.RunID, "system")
	msg := err.Error()
	ev.ErrorMessage = &msg
	eventChan <- ev
}

// buildRequest runs all request processors and attaches the agent's tool
// definitions.
func (f *BaseFlow) buildRequest(runCtx *core.RunContext) (*model.Request, error) {
	req := new(model.Request)

	for _, processor := range f.requestProcessors {
		if err := processor.ProcessRequest(runCtx, req, f.agent); err != nil {
			return nil, fmt.Errorf("request processor %s failed: %w", processor.Name(), err)
		}
	}

	for _, t := range f.agent.GetTools() {
		req.Tools = append(req.Tools, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	req.Stream = f.agent.IsStreamingEnabled()

	return req, nil
}

// toolRegistry returns the callable tools for this turn. The transfer tool is
// available whenever delegation is permitted, even though it is not part of
// the agent's registered tool set.
func (f *BaseFlow) toolRegistry() map[string]tool.Tool {
	registry := f.agent.GetTools()
	if f.agent.IsTransferEnabled() && len(f.agent.PermittedTransferTargets()) > 0 {
		registry[core.TransferToolName] = tool.NewTransferToAgentTool()
	}
	return registry
}

// runOnce performs one model turn including tool execution. It returns the
// last emitted event plus whether control was handed off to another agent; a
// nil event signals termination.
func (f *BaseFlow) runOnce(runCtx *core.RunContext, eventChan chan<- core.Event) (*core.Event, bool) {
	// Refresh the session snapshot so processors see the latest conversation,
	// including tool responses persisted by the runner.
	if runCtx.SessionStore != nil {
		if err := runCtx.RefreshSession(); err != nil {
			runCtx.LogWarn("flow.session.refresh_failed", "agent", f.agent.GetName(), "error", err.Error())
		}
	}

	req, err := f.buildRequest(runCtx)
	if err != nil {
		f.emitError(eventChan, runCtx, err)
		return nil, false
	}

	if err := runCtx.Limiter.Increment(); err != nil {
		f.emitError(eventChan, runCtx, err)
		return nil, false
	}

	hctx := hook.NewContext(runCtx)
	hooks := f.agent.GetHooks()

	// A before-model override replaces the provider call entirely.
	if override := hooks.RunBeforeModel(hctx, req); override != nil {
		runCtx.LogDebug("flow.model.short_circuit", "agent", f.agent.GetName())
		return f.handleFinalResponse(runCtx, eventChan, hctx, hooks, override)
	}

	respCh, errCh := f.agent.GetModel().Generate(runCtx.Context, *req)

	var lastEvent *core.Event
	for {
		select {
		case resp, ok := <-respCh:
			if !ok {
				return lastEvent, false
			}

			if resp.Partial {
				ev := f.emitResponse(runCtx, eventChan, resp)
				lastEvent = &ev
				continue
			}

			return f.handleFinalResponse(runCtx, eventChan, hctx, hooks, &resp)
		case err, ok := <-errCh:
			if ok && err != nil {
				f.emitError(eventChan, runCtx, fmt.Errorf("model generation failed: %w", err))
				return nil, false
			}
		case <-runCtx.Done():
			return lastEvent, false
		}
	}
}

// handleFinalResponse runs after-model hooks and response processors, emits
// the assistant event, executes any requested functions and follows a
// transfer action if one was recorded.
func (f *BaseFlow) handleFinalResponse(
	runCtx *core.RunContext,
	eventChan chan<- core.Event,
	hctx *hook.Context,
	hooks hook.Hooks,
	resp *model.Response,
) (*core.Event, bool) {
	if override := hooks.RunAfterModel(hctx, resp); override != nil {
		resp = override
	}

	for _, processor := range f.responseProcessors {
		if err := processor.ProcessResponse(runCtx, resp, f.agent); err != nil {
			f.emitError(eventChan, runCtx, fmt.Errorf("response processor %s failed: %w", processor.Name(), err))
			return nil, false
		}
	}

	ev := f.emitResponse(runCtx, eventChan, *resp)
	lastEvent := &ev

	if !f.waitForPersistence(runCtx, ev) {
		return lastEvent, false
	}

	fnCalls := ev.GetFunctionCalls()
	if len(fnCalls) == 0 {
		return lastEvent, false
	}

	var transferTarget string
	f.executor.Execute(runCtx, f.agent, f.toolRegistry(), fnCalls, func(respEv core.Event) error {
		lastEvent = &respEv
		eventChan <- respEv
		if respEv.Actions.TransferToAgent != nil {
			transferTarget = *respEv.Actions.TransferToAgent
		}
		if !f.waitForPersistence(runCtx, respEv) {
			return runCtx.Err()
		}
		return nil
	})

	if transferTarget != "" {
		if err := f.agent.TransferToAgent(runCtx, transferTarget); err != nil {
			f.emitError(eventChan, runCtx, fmt.Errorf("transfer to %s failed: %w", transferTarget, err))
			return nil, false
		}
		return lastEvent, true
	}

	return lastEvent, false
}

// emitResponse converts a model response into an event and sends it.
func (f *BaseFlow) emitResponse(runCtx *core.RunContext, eventChan chan<- core.Event, resp model.Response) core.Event {
	ev := core.NewEvent(runCtx.RunID, f.agent.GetName())
	content := resp.Content
	ev.Content = &content
	ev.Partial = &resp.Partial

	if !resp.Partial && len(ev.GetFunctionCalls()) == 0 {
		complete := true
		ev.TurnComplete = &complete

		if key := f.agent.GetOutputKey(); key != "" && ev.HasText() {
			if ev.Actions.StateDelta == nil {
				ev.Actions.StateDelta = map[string]any{}
			}
			ev.Actions.StateDelta[key] = textOf(content)
		}
	}

	eventChan <- ev
	return ev
}

// waitForPersistence blocks on the resume signal the runner sends after the
// event has been appended to the session. Returns false on cancellation.
func (f *BaseFlow) waitForPersistence(runCtx *core.RunContext, ev core.Event) bool {
	if ev.IsPartial() || runCtx.Resume == nil {
		return true
	}
	select {
	case <-runCtx.Done():
		return false
	case <-runCtx.Resume:
		return true
	}
}

func textOf(c core.Content) string {
	var text string
	for _, p := range c.Parts {
		if tp, ok := p.(core.TextPart); ok {
			text += tp.Text
		}
	}
	return text
}
