// Package evaluation provides offline checks over run transcripts, used by
// tests and examples to verify conversational invariants after the fact.
package evaluation

import (
	"fmt"
	"strings"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/stockquote"
)

// Finding flags one invariant violation in a transcript.
type Finding struct {
	EventID string
	Message string
}

// Result summarizes a transcript evaluation.
type Result struct {
	Findings   []Finding
	Quote      *stockquote.Quote
	FinalText  string
	EventCount int
}

// OK reports whether the transcript passed all checks.
func (r *Result) OK() bool { return len(r.Findings) == 0 }

// TranscriptEvaluator inspects an ordered event transcript and verifies the
// hand-off explanation invariant: every transfer function call must be
// preceded, within its own event content, by a non-blank text part. It also
// extracts the final structured quote when one is present.
type TranscriptEvaluator struct{}

// NewTranscriptEvaluator returns a TranscriptEvaluator.
func NewTranscriptEvaluator() *TranscriptEvaluator { return &TranscriptEvaluator{} }

// Evaluate checks the transcript and collects findings.
func (e *TranscriptEvaluator) Evaluate(events []core.Event) *Result {
	res := &Result{EventCount: len(events)}

	for _, ev := range events {
		if ev.IsPartial() || ev.Content == nil {
			continue
		}

		if len(ev.GetTransferCalls()) > 0 {
			if err := checkHandoffExplained(ev); err != nil {
				res.Findings = append(res.Findings, Finding{EventID: ev.ID, Message: err.Error()})
			}
		}

		if ev.Content.Role == "assistant" && ev.IsFinalResponse() {
			text := textOf(ev)
			if text != "" {
				res.FinalText = text
			}
		}
	}

	if q, ok := stockquote.ExtractQuote(res.FinalText); ok {
		res.Quote = &q
	}

	return res
}

// checkHandoffExplained requires a non-blank text part somewhere before the
// first transfer call in the event's part order.
func checkHandoffExplained(ev core.Event) error {
	for _, p := range ev.Content.Parts {
		switch part := p.(type) {
		case core.TextPart:
			if strings.TrimSpace(part.Text) != "" {
				return nil
			}
		case core.FunctionCallPart:
			if part.FunctionCall.Name == core.TransferToolName {
				return fmt.Errorf("transfer call by %s has no preceding explanation text", ev.Author)
			}
		}
	}
	return nil
}

func textOf(ev core.Event) string {
	var b strings.Builder
	for _, p := range ev.Content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			b.WriteString(tp.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
