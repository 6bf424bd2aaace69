package core

import (
	"errors"
	"testing"
)

func TestEventConstructors(t *testing.T) {
	e := NewEvent("run-123", "authorA")
	if e.Author != "authorA" || e.RunID != "run-123" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}

	msg := NewMessageEvent("agent1", "hello world")
	if msg.Content == nil || msg.Content.Role != "assistant" || len(msg.Content.Parts) != 1 {
		t.Fatalf("NewMessageEvent malformed: %+v", msg)
	}

	userContent := NewUserText("hi")
	user := NewUserContentEvent("run-123", &userContent)
	if user.Content == nil || user.Content.Role != "user" || user.Author != "user" {
		t.Fatalf("NewUserContentEvent malformed: %+v", user)
	}

	ok := NewFunctionResponseEvent("agent2", "call-1", "do_stuff", 42, nil)
	resps := ok.GetFunctionResponses()
	if len(resps) != 1 || resps[0].Response.(int) != 42 || resps[0].Error != "" {
		t.Fatalf("function response extraction failed: %+v", resps)
	}

	failed := NewFunctionResponseEvent("agent2", "call-2", "do_stuff", nil, errors.New("boom"))
	if failed.GetFunctionResponses()[0].Error == "" {
		t.Fatalf("expected error message in function response")
	}
}

func TestEventIsFinalResponse(t *testing.T) {
	e := NewEvent("run", "agent")
	if !e.IsFinalResponse() {
		t.Error("bare event should be final")
	}

	partial := true
	e2 := NewEvent("run", "agent")
	e2.Partial = &partial
	if e2.IsFinalResponse() {
		t.Error("partial event should not be final")
	}

	e3 := NewEvent("run", "agent")
	e3.Content = &Content{Role: "assistant", Parts: []Part{
		FunctionCallPart{FunctionCall: FunctionCall{Name: "f"}},
	}}
	if e3.IsFinalResponse() {
		t.Error("event with function call should not be final")
	}

	e4 := NewFunctionResponseEvent("agent", "id", "f", nil, nil)
	if e4.IsFinalResponse() {
		t.Error("event with function response should not be final")
	}
}

func TestEventTransferCalls(t *testing.T) {
	e := NewEvent("run", "root_agent")
	e.Content = &Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "Handing off."},
		FunctionCallPart{FunctionCall: FunctionCall{Name: "web_search", Arguments: `{"query":"x"}`}},
		FunctionCallPart{FunctionCall: FunctionCall{Name: TransferToolName, Arguments: `{"agent_name":"child"}`}},
	}}

	if got := len(e.GetFunctionCalls()); got != 2 {
		t.Fatalf("expected 2 function calls, got %d", got)
	}

	transfers := e.GetTransferCalls()
	if len(transfers) != 1 || transfers[0].Name != TransferToolName {
		t.Fatalf("expected only the transfer call, got %+v", transfers)
	}
}

func TestEventHasText(t *testing.T) {
	e := NewEvent("run", "agent")
	if e.HasText() {
		t.Error("event without content has no text")
	}

	e.Content = &Content{Role: "assistant", Parts: []Part{TextPart{Text: "  \n"}}}
	if e.HasText() {
		t.Error("whitespace-only text should not count")
	}

	e.Content.Parts = append(e.Content.Parts, TextPart{Text: "something"})
	if !e.HasText() {
		t.Error("expected HasText true")
	}
}
