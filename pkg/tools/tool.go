// Package tools defines XML tools: capabilities an agent invokes by
// emitting a <tool> element in its output, and a registry that dispatches
// those calls.
package tools

import (
	"bytes"
	"context"
	"encoding/xml"
)

// Tool is a capability an agent calls with XML arguments, for example
//
//	<tool>
//	<tool_name>browser_navigate</tool_name>
//	<arguments>
//	  <url>https://example.com</url>
//	</arguments>
//	</tool>
type Tool interface {
	// Name is the tool_name the agent uses, e.g. "browser_click".
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Schema is the JSON schema of the arguments.
	Schema() map[string]interface{}

	// Execute runs the tool on an <arguments> element. Metadata may be
	// returned alongside an error to describe the failure.
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)

	// IsLoopBreaking reports whether calling the tool ends the agent's turn.
	IsLoopBreaking() bool
}

// ToolCall is a parsed <tool> element.
type ToolCall struct {
	XMLName    xml.Name       `xml:"tool"`
	ServerName string         `xml:"server_name"`
	ToolName   string         `xml:"tool_name"`
	Arguments  ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock keeps the raw inner XML of <arguments> so each tool can
// decode it into its own input struct.
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments as a standalone <arguments> element.
func (tc *ToolCall) GetArgumentsXML() []byte {
	return bytes.Join([][]byte{
		[]byte("<arguments>"),
		tc.Arguments.InnerXML,
		[]byte("</arguments>"),
	}, nil)
}

// BaseToolSchema returns an object schema with the given properties.
// required is omitted when empty.
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
