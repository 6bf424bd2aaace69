package flow

import (
	"fmt"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/internal/util"
	"github.com/tickerdesk/tickerdesk/model"
)

// InstructionsProcessor resolves the agent instruction into the request's
// system prompt, applying template substitution against session state.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets the system instructions on the request.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instruction: %w", err)
	}

	runCtx.LogDebug("agent.instruction.resolved", "agent", agent.GetName(), "length", len(instructions))

	if runCtx.Session != nil {
		rendered, err := util.RenderTemplate(instructions, runCtx.StateSnapshot())
		if err != nil {
			return fmt.Errorf("failed to render instruction template: %w", err)
		}
		req.Instructions = rendered
	} else {
		req.Instructions = instructions
	}

	return nil
}

// ContentsProcessor assembles the conversation contents sent to the model:
// the system prompt followed by the windowed session history.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest adds conversation history to the request.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	contents := []core.Content{{
		Role:  "system",
		Parts: []core.Part{core.TextPart{Text: req.Instructions}},
	}}

	if runCtx.Session != nil {
		events := runCtx.Session.GetConversationHistory()
		if max := agent.MaxHistoryMessages(); max > 0 && len(events) > max {
			events = events[len(events)-max:]
		}

		for _, ev := range events {
			if ev.Content != nil && len(ev.Content.Parts) > 0 {
				contents = append(contents, *ev.Content)
			}
		}
	}

	req.Contents = contents
	return nil
}
