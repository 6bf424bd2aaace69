package hook

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/model"
)

// Hand-off annotation: after-model hooks that make delegation visible to the
// user by prepending an explanation text part in front of the transfer
// function call. Two policies are shipped; both pass the response through
// untouched whenever the target agent name cannot be extracted from the call
// arguments.

// NewAlwaysAnnotate returns an after-model hook that annotates every response
// carrying a function call, regardless of whether the model already explained
// itself. agentName is the hand-off source named in the annotation.
func NewAlwaysAnnotate(agentName string) AfterModel {
	return func(hctx *Context, resp *model.Response) *model.Response {
		if resp == nil {
			return nil
		}

		call, ok := firstFunctionCall(resp.Content.Parts, false)
		if !ok {
			return nil
		}

		target, ok := transferTarget(call)
		if !ok {
			hctx.Logger().Warn("handoff.target_missing",
				"agent", hctx.AgentName(), "function", call.Name)
			return nil
		}

		return annotate(resp, fmt.Sprintf("Transferring from %s to %s.", agentName, target))
	}
}

// NewAnnotateIfMissing returns an after-model hook that annotates only
// transfer_to_agent calls, and only when the response carries no non-blank
// text of its own. Responses where the model already stated a reason pass
// through unchanged.
func NewAnnotateIfMissing() AfterModel {
	return func(hctx *Context, resp *model.Response) *model.Response {
		if resp == nil {
			return nil
		}

		if hasText(resp.Content.Parts) {
			return nil
		}

		call, ok := firstFunctionCall(resp.Content.Parts, true)
		if !ok {
			return nil
		}

		target, ok := transferTarget(call)
		if !ok {
			hctx.Logger().Warn("handoff.target_missing",
				"agent", hctx.AgentName(), "function", call.Name)
			return nil
		}

		return annotate(resp, fmt.Sprintf("Handing off to `%s` to complete the request.", target))
	}
}

// firstFunctionCall returns the first function call part. With transferOnly
// set, only transfer_to_agent calls qualify.
func firstFunctionCall(parts []core.Part, transferOnly bool) (core.FunctionCall, bool) {
	for _, p := range parts {
		fc, ok := p.(core.FunctionCallPart)
		if !ok {
			continue
		}
		if transferOnly && fc.FunctionCall.Name != core.TransferToolName {
			continue
		}
		return fc.FunctionCall, true
	}
	return core.FunctionCall{}, false
}

// transferTarget extracts the destination agent name from the call arguments.
func transferTarget(call core.FunctionCall) (string, bool) {
	v := gjson.Get(call.Arguments, core.TransferArgKey)
	if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
		return "", false
	}
	return v.Str, true
}

// hasText reports whether any part carries non-whitespace text.
func hasText(parts []core.Part) bool {
	for _, p := range parts {
		if tp, ok := p.(core.TextPart); ok && strings.TrimSpace(tp.Text) != "" {
			return true
		}
	}
	return false
}

// annotate clones the response and prepends the explanation text part.
// Finish reason and usage metadata are preserved on the clone.
func annotate(resp *model.Response, text string) *model.Response {
	out := resp.Clone()
	out.Content.Parts = append([]core.Part{core.TextPart{Text: text}}, out.Content.Parts...)
	return &out
}
