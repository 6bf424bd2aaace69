package flow

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/hook"
	"github.com/tickerdesk/tickerdesk/logging"
	"github.com/tickerdesk/tickerdesk/model"
	"github.com/tickerdesk/tickerdesk/session"
	"github.com/tickerdesk/tickerdesk/tool"
)

type mockAgent struct {
	name          string
	mdl           model.Model
	instructions  string
	tools         map[string]tool.Tool
	subAgents     []FlowAgent
	hooks         hook.Hooks
	streaming     bool
	transfer      bool
	targets       []TransferTarget
	outputKey     string
	maxHistory    int
	transferredTo string
	transferErr   error
}

func (a *mockAgent) GetName() string       { return a.name }
func (a *mockAgent) GetModel() model.Model { return a.mdl }
func (a *mockAgent) ResolveInstructions(*core.RunContext) (string, error) {
	return a.instructions, nil
}
func (a *mockAgent) GetTools() map[string]tool.Tool {
	out := map[string]tool.Tool{}
	for k, v := range a.tools {
		out[k] = v
	}
	return out
}
func (a *mockAgent) GetSubAgents() []FlowAgent                  { return a.subAgents }
func (a *mockAgent) GetHooks() hook.Hooks                       { return a.hooks }
func (a *mockAgent) IsStreamingEnabled() bool                   { return a.streaming }
func (a *mockAgent) IsTransferEnabled() bool                    { return a.transfer }
func (a *mockAgent) PermittedTransferTargets() []TransferTarget { return a.targets }
func (a *mockAgent) GetOutputKey() string                       { return a.outputKey }
func (a *mockAgent) MaxHistoryMessages() int                    { return a.maxHistory }
func (a *mockAgent) TransferToAgent(_ *core.RunContext, agentName string) error {
	a.transferredTo = agentName
	return a.transferErr
}

// countingModel wraps a model counting Generate calls.
type countingModel struct {
	inner model.Model
	calls int32
}

func (m *countingModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	atomic.AddInt32(&m.calls, 1)
	return m.inner.Generate(ctx, req)
}

func (m *countingModel) Info() model.Info { return m.inner.Info() }

func newFlowRunContext(t *testing.T, agentName string, maxCalls int) *core.RunContext {
	t.Helper()
	store := session.NewInMemoryStore()
	sess, err := store.Create("sess")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return core.NewRunContext(context.Background(), core.RunContextParams{
		SessionID:     "sess",
		RunID:         "run",
		Agent:         core.AgentInfo{Name: agentName, Type: "model"},
		UserContent:   core.NewUserText("hi"),
		MaxModelCalls: maxCalls,
		Session:       sess,
		SessionStore:  store,
		Logger:        logging.NoOpLogger{},
	})
}

func collect(ch <-chan core.Event) []core.Event {
	var events []core.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestBaseFlowFinalTextResponse(t *testing.T) {
	scripted := model.NewScriptedModel("m")
	scripted.EnqueueText("all done", nil)

	agent := &mockAgent{name: "worker", mdl: scripted, instructions: "be helpful", outputKey: "answer"}
	flow := NewSingleAgentFlow(agent)

	runCtx := newFlowRunContext(t, "worker", 10)
	ch, err := flow.Execute(runCtx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	events := collect(ch)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	ev := events[0]
	if !ev.IsFinalResponse() {
		t.Fatalf("expected final response event")
	}
	if !ev.HasText() {
		t.Fatalf("expected text content")
	}
	if got := ev.Actions.StateDelta["answer"]; got != "all done" {
		t.Fatalf("expected output key state delta, got %v", got)
	}
}

func TestBaseFlowToolLoop(t *testing.T) {
	scripted := model.NewScriptedModel("m")
	scripted.EnqueueFunctionCall("", "c1", "echo", `{"msg":"hi"}`, nil)
	scripted.EnqueueText("done", nil)

	echo := tool.NewFunctionTool("echo", "echoes", map[string]any{"type": "object"},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["msg"], nil
		})

	agent := &mockAgent{name: "worker", mdl: scripted, tools: map[string]tool.Tool{"echo": echo}}
	flow := NewSingleAgentFlow(agent)

	runCtx := newFlowRunContext(t, "worker", 10)
	ch, err := flow.Execute(runCtx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	events := collect(ch)
	if len(events) != 3 {
		t.Fatalf("expected call, response and final events, got %d", len(events))
	}

	if len(events[0].GetFunctionCalls()) != 1 {
		t.Fatalf("first event should carry the function call")
	}

	responses := events[1].GetFunctionResponses()
	if len(responses) != 1 {
		t.Fatalf("second event should carry the function response")
	}
	if responses[0].Response != "hi" {
		t.Fatalf("unexpected tool result: %v", responses[0].Response)
	}

	if !events[2].IsFinalResponse() {
		t.Fatalf("third event should be the final response")
	}
}

func TestBaseFlowBeforeModelShortCircuit(t *testing.T) {
	counting := &countingModel{inner: model.NewScriptedModel("m")}

	agent := &mockAgent{
		name: "worker",
		mdl:  counting,
		hooks: hook.Hooks{
			BeforeModel: []hook.BeforeModel{
				func(*hook.Context, *model.Request) *model.Response {
					return &model.Response{
						Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "cached"}}},
						FinishReason: "stop",
					}
				},
			},
		},
	}
	flow := NewSingleAgentFlow(agent)

	runCtx := newFlowRunContext(t, "worker", 10)
	ch, _ := flow.Execute(runCtx)
	events := collect(ch)

	if atomic.LoadInt32(&counting.calls) != 0 {
		t.Fatalf("model must not be called when a before-model hook overrides")
	}
	if len(events) != 1 || !strings.Contains(eventText(events[0]), "cached") {
		t.Fatalf("expected the override response to be emitted")
	}
}

func TestBaseFlowAfterModelOverride(t *testing.T) {
	scripted := model.NewScriptedModel("m")
	scripted.EnqueueText("original", nil)

	agent := &mockAgent{
		name: "worker",
		mdl:  scripted,
		hooks: hook.Hooks{
			AfterModel: []hook.AfterModel{
				func(_ *hook.Context, resp *model.Response) *model.Response {
					out := resp.Clone()
					out.Content.Parts = append([]core.Part{core.TextPart{Text: "prefix. "}}, out.Content.Parts...)
					return &out
				},
			},
		},
	}
	flow := NewSingleAgentFlow(agent)

	runCtx := newFlowRunContext(t, "worker", 10)
	events := collect(mustExecute(t, flow, runCtx))

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := eventText(events[0]); got != "prefix. original" {
		t.Fatalf("unexpected event text %q", got)
	}
}

func TestBaseFlowTransfer(t *testing.T) {
	scripted := model.NewScriptedModel("m")
	scripted.EnqueueFunctionCall("Delegating.", "c1", core.TransferToolName, `{"agent_name":"child"}`, nil)

	agent := &mockAgent{
		name:     "root",
		mdl:      scripted,
		transfer: true,
		targets:  []TransferTarget{{Name: "child", Description: "does the work"}},
	}
	flow := NewMultiAgentFlow(agent)

	runCtx := newFlowRunContext(t, "root", 10)
	events := collect(mustExecute(t, flow, runCtx))

	if agent.transferredTo != "child" {
		t.Fatalf("expected transfer to child, got %q", agent.transferredTo)
	}

	// Assistant event with the call, then the function response event.
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Actions.TransferToAgent == nil || *events[1].Actions.TransferToAgent != "child" {
		t.Fatalf("function response event must carry the transfer action")
	}
}

func TestBaseFlowModelCallLimit(t *testing.T) {
	scripted := model.NewScriptedModel("m")
	scripted.EnqueueFunctionCall("", "c1", "echo", `{}`, nil)
	scripted.EnqueueText("never reached", nil)

	echo := tool.NewFunctionTool("echo", "echoes", map[string]any{"type": "object"},
		func(*core.ToolContext, map[string]any) (any, error) { return "ok", nil })

	agent := &mockAgent{name: "worker", mdl: scripted, tools: map[string]tool.Tool{"echo": echo}}
	flow := NewSingleAgentFlow(agent)

	runCtx := newFlowRunContext(t, "worker", 1)
	events := collect(mustExecute(t, flow, runCtx))

	last := events[len(events)-1]
	if last.ErrorMessage == nil {
		t.Fatalf("expected an error event once the model call limit is hit")
	}
}

func TestSelectorPicksFlow(t *testing.T) {
	solo := &mockAgent{name: "solo"}
	if _, ok := NewSelector().SelectFlow(solo).(*SingleAgentFlow); !ok {
		t.Fatalf("expected SingleAgentFlow for isolated agent")
	}

	delegating := &mockAgent{name: "root", transfer: true}
	if _, ok := NewSelector().SelectFlow(delegating).(*MultiAgentFlow); !ok {
		t.Fatalf("expected MultiAgentFlow for delegating agent")
	}

	withSubs := &mockAgent{name: "parent", subAgents: []FlowAgent{&mockAgent{name: "child"}}}
	if _, ok := NewSelector().SelectFlow(withSubs).(*MultiAgentFlow); !ok {
		t.Fatalf("expected MultiAgentFlow for agent with sub-agents")
	}
}

func mustExecute(t *testing.T, f Flow, runCtx *core.RunContext) <-chan core.Event {
	t.Helper()
	ch, err := f.Execute(runCtx)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	return ch
}

func eventText(ev core.Event) string {
	if ev.Content == nil {
		return ""
	}
	var text string
	for _, p := range ev.Content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			text += tp.Text
		}
	}
	return text
}
