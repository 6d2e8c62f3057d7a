package actions

import (
	"fmt"
	"strings"
)

// Kind names a browser action.
type Kind string

const (
	KindNavigate    Kind = "NAVIGATE"     // KindNavigate loads a URL.
	KindClick       Kind = "CLICK"        // KindClick clicks an element.
	KindType        Kind = "TYPE"         // KindType types text into an input.
	KindSelect      Kind = "SELECT"       // KindSelect picks an option in a select element.
	KindScreenshot  Kind = "SCREENSHOT"   // KindScreenshot saves a screenshot to a file.
	KindPageContent Kind = "PAGE_CONTENT" // KindPageContent reads the page text.
)

// Kinds lists every action kind in registration order.
var Kinds = []Kind{KindNavigate, KindClick, KindType, KindSelect, KindScreenshot, KindPageContent}

// Label returns the kind as used in sentences ("Navigate", "Page content").
func (k Kind) Label() string {
	s := strings.ToLower(strings.ReplaceAll(string(k), "_", " "))
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// required lists the payload fields each kind needs, in reporting order.
var required = map[Kind][]string{
	KindNavigate:    {"url"},
	KindClick:       {"selector"},
	KindType:        {"selector", "text"},
	KindSelect:      {"selector", "value"},
	KindScreenshot:  {"path"},
	KindPageContent: nil,
}

// Payload is the structured content of a browser action.
type Payload struct {
	URL      string
	Selector string
	Text     string
	Value    string
	Path     string
	// Options are passed through to the tool call.
	Options map[string]any
}

// DecodePayload reads a payload from loosely typed content. A field that is
// present but not a string is treated as missing.
func DecodePayload(content map[string]any) Payload {
	var p Payload
	if content == nil {
		return p
	}
	p.URL, _ = content["url"].(string)
	p.Selector, _ = content["selector"].(string)
	p.Text, _ = content["text"].(string)
	p.Value, _ = content["value"].(string)
	p.Path, _ = content["path"].(string)
	if opts, ok := content["options"].(map[string]any); ok {
		p.Options = opts
	}
	return p
}

func (p Payload) field(name string) string {
	switch name {
	case "url":
		return p.URL
	case "selector":
		return p.Selector
	case "text":
		return p.Text
	case "value":
		return p.Value
	case "path":
		return p.Path
	default:
		return ""
	}
}

// ValidationError reports a payload missing a required field.
type ValidationError struct {
	Kind  Kind
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("need a valid %s", e.Field)
}

// Validate checks p against the fields kind requires. Fields must be
// non-empty strings.
func Validate(kind Kind, p Payload) error {
	fields, ok := required[kind]
	if !ok {
		return fmt.Errorf("unknown action %q", kind)
	}
	for _, f := range fields {
		if p.field(f) == "" {
			return &ValidationError{Kind: kind, Field: f}
		}
	}
	return nil
}
