package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/tickerdesk/tickerdesk/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Request captures the normalized model input produced by flows.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Clone returns a deep copy of the response safe for independent mutation by
// response hooks (part slices are copied, usage is duplicated).
func (r Response) Clone() Response {
	c := r
	c.Content.Parts = make([]core.Part, len(r.Content.Parts))
	copy(c.Content.Parts, r.Content.Parts)
	if r.Usage != nil {
		u := *r.Usage
		c.Usage = &u
	}
	return c
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by flows & agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ScriptedModel is a deterministic in-memory Model for tests, examples and
// offline runs. Responses are consumed from a FIFO queue, one per Generate
// call; when the queue is empty a plain echo of the last user text is
// produced. Queue responses may contain function-call parts, which makes
// tool-loop and hand-off paths exercisable without a provider.
type ScriptedModel struct {
	mu    sync.Mutex
	info  Info
	queue []Response
}

// NewScriptedModel constructs a ScriptedModel with tool support enabled.
func NewScriptedModel(name string) *ScriptedModel {
	return &ScriptedModel{
		info: Info{Name: name, Provider: "scripted", SupportsTools: true},
	}
}

// Enqueue appends a prepared response to the script.
func (m *ScriptedModel) Enqueue(resp Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

// EnqueueText is a convenience for a final assistant text response.
func (m *ScriptedModel) EnqueueText(text string, usage *TokenUsage) {
	m.Enqueue(Response{
		Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: text}}},
		FinishReason: "stop",
		Usage:        usage,
	})
}

// EnqueueFunctionCall is a convenience for a response requesting a single
// function call, optionally preceded by explanatory text.
func (m *ScriptedModel) EnqueueFunctionCall(text, id, name, args string, usage *TokenUsage) {
	parts := []core.Part{}
	if text != "" {
		parts = append(parts, core.TextPart{Text: text})
	}
	parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: id, Name: name, Arguments: args}})
	m.Enqueue(Response{
		Content:      core.Content{Role: "assistant", Parts: parts},
		FinishReason: "tool_calls",
		Usage:        usage,
	})
}

// Generate implements Model; emits the next scripted response or an echo.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		m.mu.Lock()
		var resp Response
		if len(m.queue) > 0 {
			resp = m.queue[0]
			m.queue = m.queue[1:]
		} else {
			resp = Response{
				Content:      core.Content{Role: "assistant", Parts: []core.Part{core.TextPart{Text: echoText(req)}}},
				FinishReason: "stop",
			}
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- resp:
		}
	}()

	return respCh, errCh
}

// Info implements the Model interface.
func (m *ScriptedModel) Info() Info { return m.info }

func echoText(req Request) string {
	if len(req.Contents) == 0 {
		return "no input"
	}
	last := req.Contents[len(req.Contents)-1]
	var text string
	for _, p := range last.Parts {
		if tp, ok := p.(core.TextPart); ok {
			text += tp.Text
		}
	}
	return fmt.Sprintf("Scripted response to: %s", text)
}
