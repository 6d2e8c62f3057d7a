package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerMCPTool(t Tool) {
	name := t.Name
	s.mcp.AddTool(&mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.Schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return errorResult(invalidArg("arguments must be a JSON object: %v", err)), nil
			}
		}

		out, err := s.Call(ctx, s.shared, name, args)
		if err != nil {
			return errorResult(asToolError(err)), nil
		}
		return toResult(out), nil
	})
}

// toResult renders an Output as MCP content: the text first, then images.
func toResult(out *Output) *mcp.CallToolResult {
	res := &mcp.CallToolResult{}
	if out.Text != "" {
		res.Content = append(res.Content, &mcp.TextContent{Text: out.Text})
	}
	for _, img := range out.Images {
		res.Content = append(res.Content, &mcp.ImageContent{Data: img.Data, MIMEType: img.MIMEType})
	}
	if len(res.Content) == 0 {
		res.Content = []mcp.Content{&mcp.TextContent{Text: "ok"}}
	}
	if out.Data != nil {
		res.StructuredContent = out.Data
	}
	return res
}

// errorResult reports a tool failure in-band so the client sees the
// message and code rather than a protocol error.
func errorResult(te *ToolError) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError:           true,
		Content:           []mcp.Content{&mcp.TextContent{Text: te.Message}},
		StructuredContent: map[string]any{"code": te.Code},
	}
}
