// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema-validated arguments and
// consistent error handling. Tools receive a *core.ToolContext giving them
// access to session state, transfer signalling, artifacts and memory.
package tool

import (
	"fmt"

	"github.com/tickerdesk/tickerdesk/core"
	"github.com/tickerdesk/tickerdesk/internal/util"
)

// Tool is a callable capability exposed to a model.
//
// Implementations should provide descriptive snake_case names, a minimal JSON
// schema for parameters, and be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier used in function call declarations.
	Name() string

	// Description is shown to the model to guide tool selection.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with validated arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError re-exports the internal validation error type.
type ValidationError = util.ValidationError

// Error codes used by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// ToolError is the uniform error shape surfaced from tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
