package tool

import (
	"fmt"

	"github.com/tickerdesk/tickerdesk/core"
)

// transferToAgentTool requests orchestration transfer to another agent.
type transferToAgentTool struct{}

// NewTransferToAgentTool constructs the transfer tool instance.
func NewTransferToAgentTool() Tool { return &transferToAgentTool{} }

func (t *transferToAgentTool) Name() string { return core.TransferToolName }

func (t *transferToAgentTool) Description() string {
	return "Request transfer of control to another agent by name. Use when another agent is better suited to handle the request."
}

func (t *transferToAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			core.TransferArgKey: map[string]any{
				"type":        "string",
				"description": "Name of the agent to transfer control to",
			},
		},
		"required": []string{core.TransferArgKey},
	}
}

func (t *transferToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args[core.TransferArgKey]
	if !ok {
		return nil, fmt.Errorf("missing required field '%s'", core.TransferArgKey)
	}

	agentName, ok := raw.(string)
	if !ok || agentName == "" {
		return nil, fmt.Errorf("field '%s' must be a non-empty string", core.TransferArgKey)
	}

	tc.TransferToAgent(agentName)

	return map[string]any{"transferred": true, core.TransferArgKey: agentName}, nil
}
