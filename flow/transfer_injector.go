package flow

import (
	"fmt"
	"strings"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/model"
)

// TransferToolInjector adds the transfer_to_agent tool definition to requests
// of agents that may delegate. The definition's description enumerates the
// permitted targets so the model only sees agents it is actually allowed to
// hand off to. Injection is idempotent; agents without permitted targets get
// no definition.
type TransferToolInjector struct{}

// NewTransferToolInjector creates a new transfer tool injector.
func NewTransferToolInjector() *TransferToolInjector { return &TransferToolInjector{} }

// Name returns the processor's identifier.
func (p *TransferToolInjector) Name() string { return "transfer_tool_injector" }

// ProcessRequest injects the transfer tool definition when applicable.
func (p *TransferToolInjector) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	if !agent.IsTransferEnabled() {
		return nil
	}

	targets := agent.PermittedTransferTargets()
	if len(targets) == 0 {
		return nil
	}

	for _, td := range req.Tools {
		if td.Function.Name == core.TransferToolName {
			return nil
		}
	}

	names := make([]string, len(targets))
	var lines []string
	for i, t := range targets {
		names[i] = t.Name
		line := fmt.Sprintf("- %s", t.Name)
		if t.Description != "" {
			line = fmt.Sprintf("- %s: %s", t.Name, t.Description)
		}
		lines = append(lines, line)
	}

	runCtx.LogDebug("flow.transfer.injected", "agent", agent.GetName(), "targets", names)

	req.Tools = append(req.Tools, model.ToolDefinition{
		Type: "function",
		Function: model.FunctionDefinition{
			Name: core.TransferToolName,
			Description: fmt.Sprintf(
				"Transfer control of the conversation to another agent. Available agents:\n%s",
				strings.Join(lines, "\n"),
			),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					core.TransferArgKey: map[string]any{
						"type":        "string",
						"description": "Name of the agent to transfer control to",
						"enum":        names,
					},
				},
				"required": []string{core.TransferArgKey},
			},
		},
	})

	return nil
}
