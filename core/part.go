package core

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string // Plain UTF-8 text
}

func (TextPart) isPart() {}

// InlineDataPart is a binary payload carried inline with its media type
// (e.g. an image attached to a user turn).
type InlineDataPart struct {
	MIMEType string // Media type, e.g. "image/png"
	Data     []byte // Raw payload bytes
}

func (InlineDataPart) isPart() {}

// FilePart references an externally stored payload by URI. MIMEType may be
// empty when the producer did not declare one.
type FilePart struct {
	URI      string // External retrieval URI
	MIMEType string // Optional media type
	Name     string // Original filename hint
}

func (FilePart) isPart() {}

// FunctionCall describes a tool/function invocation request.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Optional stable id (can be supplied later)
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
}

func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string      `json:"id,omitempty"`       // Matches originating FunctionCall ID
	Name     string      `json:"name"`               // Function name
	Response interface{} `json:"response,omitempty"` // Successful result (any shape)
	Error    string      `json:"error,omitempty"`    // Populated on failure
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
}

func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, assistant, tool, system,...)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}

// NewUserText builds single-part user content. Convenience for callers and tests.
func NewUserText(text string) Content {
	return Content{Role: "user", Parts: []Part{TextPart{Text: text}}}
}
