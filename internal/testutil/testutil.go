// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing events and sessions. Not intended for
// production usage.
package testutil

import (
	"github.com/tickerdesk/tickerdesk/core"
)

// EventBuilder provides a fluent helper for constructing events in tests.
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	author        string
	runID         string
	id            string
	role          string
	textParts     []string
	funcCalls     []core.FunctionCall
	funcResponses []core.FunctionResponse
	partial       *bool
	turnComplete  *bool
	customParts   []core.Part
	actions       core.EventActions
}

// NewEventBuilder creates a builder with default author "agent".
func NewEventBuilder() *EventBuilder { return &EventBuilder{author: "agent"} }

// Author sets the author name for the event.
func (b *EventBuilder) Author(a string) *EventBuilder { b.author = a; return b }

// Run sets the run id associated with the event.
func (b *EventBuilder) Run(id string) *EventBuilder { b.runID = id; return b }

// ID overrides the auto-generated event id.
func (b *EventBuilder) ID(id string) *EventBuilder { b.id = id; return b }

// Partial marks the event as a streaming fragment.
func (b *EventBuilder) Partial(p bool) *EventBuilder { b.partial = &p; return b }

// TurnComplete sets the TurnComplete flag.
func (b *EventBuilder) TurnComplete(c bool) *EventBuilder { b.turnComplete = &c; return b }

// UserText appends a user role text part.
func (b *EventBuilder) UserText(t string) *EventBuilder {
	b.role = "user"
	b.textParts = append(b.textParts, t)
	return b
}

// AssistantText appends an assistant role text part.
func (b *EventBuilder) AssistantText(t string) *EventBuilder {
	b.role = "assistant"
	b.textParts = append(b.textParts, t)
	return b
}

// AddPart appends a custom content part.
func (b *EventBuilder) AddPart(p core.Part) *EventBuilder {
	b.customParts = append(b.customParts, p)
	return b
}

// FunctionCall adds a function call part with the given JSON argument string.
func (b *EventBuilder) FunctionCall(name, args string) *EventBuilder {
	b.funcCalls = append(b.funcCalls, core.FunctionCall{Name: name, Arguments: args})
	return b
}

// FunctionResponse adds a function response part.
func (b *EventBuilder) FunctionResponse(id, name string, result any, err error) *EventBuilder {
	fr := core.FunctionResponse{ID: id, Name: name, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	b.funcResponses = append(b.funcResponses, fr)
	return b
}

// Transfer sets the target agent for a transfer action.
func (b *EventBuilder) Transfer(to string) *EventBuilder { b.actions.TransferToAgent = &to; return b }

// Build constructs the core.Event value.
func (b *EventBuilder) Build() core.Event {
	ev := core.NewEvent(b.runID, b.author)
	if b.id != "" {
		ev.ID = b.id
	}
	if b.partial != nil {
		ev.Partial = b.partial
	}
	if b.turnComplete != nil {
		ev.TurnComplete = b.turnComplete
	}
	ev.Actions = b.actions

	parts := make([]core.Part, 0, len(b.textParts)+len(b.funcCalls)+len(b.funcResponses)+len(b.customParts))
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}
	parts = append(parts, b.customParts...)
	if len(parts) > 0 {
		role := b.role
		if role == "" {
			role = "assistant"
		}
		ev.Content = &core.Content{Role: role, Parts: parts}
	}
	return ev
}

// SessionBuilder helps construct sessions with fluent chaining for tests.
type SessionBuilder struct {
	id     string
	state  map[string]any
	events []core.Event
}

// NewSessionBuilder creates a new builder for a session with the given id.
func NewSessionBuilder(id string) *SessionBuilder {
	return &SessionBuilder{id: id, state: map[string]any{}}
}

// State sets a state key/value pair on the resulting session.
func (b *SessionBuilder) State(key string, val any) *SessionBuilder {
	b.state[key] = val
	return b
}

// Events appends events to the session history.
func (b *SessionBuilder) Events(evs ...core.Event) *SessionBuilder {
	b.events = append(b.events, evs...)
	return b
}

// Build returns a *core.Session with pre-populated state and events.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.id)
	for k, v := range b.state {
		s.State[k] = v
	}
	s.Events = append(s.Events, b.events...)
	return s
}
