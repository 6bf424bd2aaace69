package model

import (
	"context"
	"testing"

	"github.com/tickerdesk/tickerdesk/core"
)

func generateOne(t *testing.T, m Model, req Request) Response {
	t.Helper()
	respCh, errCh := m.Generate(context.Background(), req)
	select {
	case resp := <-respCh:
		return resp
	case err := <-errCh:
		t.Fatalf("generate: %v", err)
		return Response{}
	}
}

func TestScriptedModelQueueOrder(t *testing.T) {
	m := NewScriptedModel("scripted")
	m.EnqueueText("first", nil)
	m.EnqueueFunctionCall("explained", "c1", "web_search", `{"query":"x"}`, nil)

	resp := generateOne(t, m, Request{})
	if len(resp.Content.Parts) != 1 {
		t.Fatalf("unexpected parts: %+v", resp.Content.Parts)
	}
	if tp := resp.Content.Parts[0].(core.TextPart); tp.Text != "first" {
		t.Fatalf("unexpected text %q", tp.Text)
	}

	resp = generateOne(t, m, Request{})
	if resp.FinishReason != "tool_calls" || len(resp.Content.Parts) != 2 {
		t.Fatalf("unexpected function call response: %+v", resp)
	}
}

func TestScriptedModelEchoFallback(t *testing.T) {
	m := NewScriptedModel("scripted")

	resp := generateOne(t, m, Request{Contents: []core.Content{core.NewUserText("ping")}})
	tp := resp.Content.Parts[0].(core.TextPart)
	if tp.Text != "Scripted response to: ping" {
		t.Fatalf("unexpected echo %q", tp.Text)
	}
}

func TestResponseCloneIsDeep(t *testing.T) {
	orig := Response{
		ID:           "r1",
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: "a"}}},
		FinishReason: "stop",
		Usage:        &TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	}

	clone := orig.Clone()
	clone.Content.Parts[0] = core.TextPart{Text: "mutated"}
	clone.Usage.TotalTokens = 99

	if orig.Content.Parts[0].(core.TextPart).Text != "a" {
		t.Fatal("part mutation leaked into original")
	}
	if orig.Usage.TotalTokens != 3 {
		t.Fatal("usage mutation leaked into original")
	}
}
