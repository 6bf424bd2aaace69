package hook

// ToolTracer logs every tool invocation on its owning agent: the arguments
// going in and the result coming out. Observing only; both methods return nil.
type ToolTracer struct{}

// NewToolTracer returns a ToolTracer.
func NewToolTracer() *ToolTracer { return &ToolTracer{} }

// BeforeTool logs the pending tool call with its arguments.
func (t *ToolTracer) BeforeTool(hctx *Context, toolName string, args map[string]any) map[string]any {
	hctx.Logger().Info("tool.call",
		"agent", hctx.AgentName(),
		"tool", toolName,
		"args", args,
	)
	return nil
}

// AfterTool logs the completed tool call with its result.
func (t *ToolTracer) AfterTool(hctx *Context, toolName string, args map[string]any, result any) any {
	hctx.Logger().Info("tool.result",
		"agent", hctx.AgentName(),
		"tool", toolName,
		"result", result,
	)
	return nil
}
