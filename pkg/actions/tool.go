package actions

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/forge-playwright/pkg/tools"
)

// ActionTool exposes a browser action as an XML tool for agents that call
// tools instead of dispatching host actions.
type ActionTool struct {
	adapter *Adapter
	def     Definition
}

// NewActionTool creates the tool for kind.
func NewActionTool(adapter *Adapter, kind Kind) (*ActionTool, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown action %q", kind)
	}
	return &ActionTool{adapter: adapter, def: def}, nil
}

// Tools returns one tool per action kind, followed by the wait and
// evaluate tools.
func (a *Adapter) Tools() []tools.Tool {
	out := make([]tools.Tool, 0, len(Kinds)+2)
	for _, k := range Kinds {
		out = append(out, &ActionTool{adapter: a, def: definitions[k]})
	}
	return append(out, &WaitTool{adapter: a}, &EvaluateTool{adapter: a})
}

// Name returns the tool name, e.g. "browser_page_content".
func (t *ActionTool) Name() string {
	return "browser_" + strings.ToLower(string(t.def.Kind))
}

// Description returns the tool description.
func (t *ActionTool) Description() string {
	return t.def.Description
}

var schemaProperties = map[string]map[string]interface{}{
	"url": {
		"type":        "string",
		"description": "URL to navigate to (must include protocol, e.g., https://example.com)",
	},
	"selector": {
		"type":        "string",
		"description": "CSS or XPath selector of the target element",
	},
	"text": {
		"type":        "string",
		"description": "Text to type into the element",
	},
	"value": {
		"type":        "string",
		"description": "Option value to select",
	},
	"path": {
		"type":        "string",
		"description": "File path the screenshot is written to",
	},
	"full_page": {
		"type":        "boolean",
		"description": "Capture the full scrollable page instead of the viewport. Default: false",
	},
	"wait_until": {
		"type":        "string",
		"description": "When to consider navigation complete: 'load' (default), 'domcontentloaded', or 'networkidle'",
	},
}

var toolFields = map[Kind][]string{
	KindNavigate:    {"url", "wait_until"},
	KindClick:       {"selector"},
	KindType:        {"selector", "text"},
	KindSelect:      {"selector", "value"},
	KindScreenshot:  {"path", "full_page"},
	KindPageContent: nil,
}

// Schema returns the tool's JSON schema.
func (t *ActionTool) Schema() map[string]interface{} {
	props := make(map[string]interface{})
	for _, f := range toolFields[t.def.Kind] {
		props[f] = schemaProperties[f]
	}
	return tools.BaseToolSchema(props, required[t.def.Kind])
}

// ActionInput represents the XML arguments of every browser action tool.
type ActionInput struct {
	XMLName   xml.Name `xml:"arguments"`
	URL       string   `xml:"url"`
	Selector  string   `xml:"selector"`
	Text      string   `xml:"text"`
	Value     string   `xml:"value"`
	Path      string   `xml:"path"`
	FullPage  bool     `xml:"full_page"`
	WaitUntil string   `xml:"wait_until"`
}

func (in ActionInput) payload() Payload {
	p := Payload{URL: in.URL, Selector: in.Selector, Text: in.Text, Value: in.Value, Path: in.Path}
	opts := make(map[string]any)
	if in.FullPage {
		opts["fullPage"] = true
	}
	if in.WaitUntil != "" {
		opts["waitUntil"] = in.WaitUntil
	}
	if len(opts) > 0 {
		p.Options = opts
	}
	return p
}

// Execute runs the action with XML arguments.
func (t *ActionTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ActionInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}

	content, ok := t.adapter.Run(ctx, t.def.Kind, input.payload())
	if !ok {
		return "", content.Content, errors.New(content.Text)
	}
	return content.Text, content.Content, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ActionTool) IsLoopBreaking() bool {
	return false
}

// maxWait bounds browser_wait_for_selector timeouts.
const maxWait = 5 * time.Minute

// WaitTool waits for an element before the agent interacts with it.
type WaitTool struct {
	adapter *Adapter
}

// Name returns the tool name.
func (t *WaitTool) Name() string {
	return "browser_wait_for_selector"
}

// Description returns the tool description.
func (t *WaitTool) Description() string {
	return "Wait until an element matching a selector appears. Use it for content that loads after navigation or a click."
}

// Schema returns the tool's JSON schema.
func (t *WaitTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"selector": schemaProperties["selector"],
			"timeout": map[string]interface{}{
				"type":        "number",
				"description": "Maximum wait in milliseconds. Default: the server's timeout",
			},
		},
		[]string{"selector"},
	)
}

// Execute waits for the selector.
func (t *WaitTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName  xml.Name `xml:"arguments"`
		Selector string   `xml:"selector"`
		Timeout  float64  `xml:"timeout"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if strings.TrimSpace(input.Selector) == "" {
		return "", map[string]interface{}{"error": "Invalid WAIT_FOR_SELECTOR content"}, errors.New("need a valid selector")
	}
	timeout := time.Duration(input.Timeout) * time.Millisecond
	if timeout < 0 || timeout > maxWait {
		return "", nil, fmt.Errorf("timeout must be between 0 and %d milliseconds", maxWait.Milliseconds())
	}

	if err := t.adapter.browser.WaitForSelector(ctx, input.Selector, timeout, nil); err != nil {
		debugLog.Warnf("wait for %s failed: %v", input.Selector, err)
		return "", map[string]interface{}{"error": err.Error()}, fmt.Errorf("wait for %s failed: %w", input.Selector, err)
	}
	return fmt.Sprintf("Element %s is present", input.Selector),
		map[string]interface{}{"success": true, "selector": input.Selector}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *WaitTool) IsLoopBreaking() bool {
	return false
}

// EvaluateTool runs JavaScript in the current page.
type EvaluateTool struct {
	adapter *Adapter
}

// Name returns the tool name.
func (t *EvaluateTool) Name() string {
	return "browser_evaluate"
}

// Description returns the tool description.
func (t *EvaluateTool) Description() string {
	return "Evaluate a JavaScript expression in the current page and return its result as JSON, e.g. document.title or () => document.querySelectorAll('a').length."
}

// Schema returns the tool's JSON schema.
func (t *EvaluateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"script": map[string]interface{}{
				"type":        "string",
				"description": "JavaScript expression or arrow function. Wrap code containing < or & in CDATA",
			},
		},
		[]string{"script"},
	)
}

// Execute evaluates the script.
func (t *EvaluateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Script  string   `xml:"script"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid parameters: %w", err)
	}
	if strings.TrimSpace(input.Script) == "" {
		return "", map[string]interface{}{"error": "Invalid EVALUATE content"}, errors.New("need a valid script")
	}

	result, err := t.adapter.browser.Evaluate(ctx, input.Script)
	if err != nil {
		debugLog.Warnf("evaluate failed: %v", err)
		return "", map[string]interface{}{"error": err.Error()}, fmt.Errorf("evaluate failed: %w", err)
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return string(out), map[string]interface{}{"success": true, "result": result}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *EvaluateTool) IsLoopBreaking() bool {
	return false
}
