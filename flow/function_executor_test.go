package flow

import (
	"testing"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/hook"
	"github.com/tickerdesk/tickerdesk/tool"
)

func newTestTool(name string, fn func(*core.ToolContext, map[string]any) (any, error)) tool.Tool {
	return tool.NewFunctionTool(name, "test tool", map[string]any{"type": "object"}, fn)
}

func TestExecutorSingleCall(t *testing.T) {
	agent := &mockAgent{name: "worker"}
	runCtx := newFlowRunContext(t, "worker", 10)

	registry := map[string]tool.Tool{
		"echo": newTestTool("echo", func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["msg"], nil
		}),
	}

	exec := NewFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true})

	var emitted []core.Event
	exec.Execute(runCtx, agent, registry, []core.FunctionCall{
		{ID: "c1", Name: "echo", Arguments: `{"msg":"hello"}`},
	}, func(ev core.Event) error {
		emitted = append(emitted, ev)
		return nil
	})

	if len(emitted) != 1 {
		t.Fatalf("expected one response event, got %d", len(emitted))
	}
	responses := emitted[0].GetFunctionResponses()
	if len(responses) != 1 || responses[0].Response != "hello" {
		t.Fatalf("unexpected responses: %+v", responses)
	}
	if emitted[0].RunID != "run" {
		t.Fatalf("response event must carry the run id")
	}
}

func TestExecutorPreservesOrder(t *testing.T) {
	agent := &mockAgent{name: "worker"}
	runCtx := newFlowRunContext(t, "worker", 10)

	registry := map[string]tool.Tool{
		"echo": newTestTool("echo", func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["msg"], nil
		}),
	}

	exec := NewFunctionExecutor(FunctionExecutorConfig{MaxParallel: 2, PreserveOrder: true})

	calls := []core.FunctionCall{
		{ID: "c1", Name: "echo", Arguments: `{"msg":"first"}`},
		{ID: "c2", Name: "echo", Arguments: `{"msg":"second"}`},
		{ID: "c3", Name: "echo", Arguments: `{"msg":"third"}`},
	}

	var order []string
	exec.Execute(runCtx, agent, registry, calls, func(ev core.Event) error {
		for _, fr := range ev.GetFunctionResponses() {
			order = append(order, fr.Response.(string))
		}
		return nil
	})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("expected %d responses, got %d", len(want), len(order))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected call order preserved, got %v", order)
		}
	}
}

func TestExecutorUnknownTool(t *testing.T) {
	agent := &mockAgent{name: "worker"}
	runCtx := newFlowRunContext(t, "worker", 10)

	exec := NewFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true})

	var emitted []core.Event
	exec.Execute(runCtx, agent, map[string]tool.Tool{}, []core.FunctionCall{
		{ID: "c1", Name: "missing", Arguments: `{}`},
	}, func(ev core.Event) error {
		emitted = append(emitted, ev)
		return nil
	})

	responses := emitted[0].GetFunctionResponses()
	if len(responses) != 1 || responses[0].Error == "" {
		t.Fatalf("expected error response for unknown tool, got %+v", responses)
	}
}

func TestExecutorRecoversPanic(t *testing.T) {
	agent := &mockAgent{name: "worker"}
	runCtx := newFlowRunContext(t, "worker", 10)

	registry := map[string]tool.Tool{
		"bomb": newTestTool("bomb", func(*core.ToolContext, map[string]any) (any, error) {
			panic("kaboom")
		}),
	}

	exec := NewFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true})

	var emitted []core.Event
	exec.Execute(runCtx, agent, registry, []core.FunctionCall{
		{ID: "c1", Name: "bomb", Arguments: `{}`},
	}, func(ev core.Event) error {
		emitted = append(emitted, ev)
		return nil
	})

	responses := emitted[0].GetFunctionResponses()
	if len(responses) != 1 || responses[0].Error == "" {
		t.Fatalf("expected recovered panic as error response, got %+v", responses)
	}
}

func TestExecutorDispatchesToolHooks(t *testing.T) {
	runCtx := newFlowRunContext(t, "worker", 10)

	agent := &mockAgent{
		name: "worker",
		hooks: hook.Hooks{
			BeforeTool: []hook.BeforeTool{
				func(_ *hook.Context, _ string, args map[string]any) map[string]any {
					return map[string]any{"msg": "rewritten"}
				},
			},
			AfterTool: []hook.AfterTool{
				func(_ *hook.Context, _ string, _ map[string]any, result any) any {
					return result.(string) + "!"
				},
			},
		},
	}

	registry := map[string]tool.Tool{
		"echo": newTestTool("echo", func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["msg"], nil
		}),
	}

	exec := NewFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true})

	var emitted []core.Event
	exec.Execute(runCtx, agent, registry, []core.FunctionCall{
		{ID: "c1", Name: "echo", Arguments: `{"msg":"original"}`},
	}, func(ev core.Event) error {
		emitted = append(emitted, ev)
		return nil
	})

	responses := emitted[0].GetFunctionResponses()
	if responses[0].Response != "rewritten!" {
		t.Fatalf("expected hook overrides applied, got %v", responses[0].Response)
	}
}

func TestExecutorAppliesToolActions(t *testing.T) {
	agent := &mockAgent{name: "worker"}
	runCtx := newFlowRunContext(t, "worker", 10)

	registry := map[string]tool.Tool{
		core.TransferToolName: tool.NewTransferToAgentTool(),
	}

	exec := NewFunctionExecutor(FunctionExecutorConfig{PreserveOrder: true})

	var emitted []core.Event
	exec.Execute(runCtx, agent, registry, []core.FunctionCall{
		{ID: "c1", Name: core.TransferToolName, Arguments: `{"agent_name":"child"}`},
	}, func(ev core.Event) error {
		emitted = append(emitted, ev)
		return nil
	})

	if emitted[0].Actions.TransferToAgent == nil || *emitted[0].Actions.TransferToAgent != "child" {
		t.Fatalf("expected transfer action on response event")
	}
}
