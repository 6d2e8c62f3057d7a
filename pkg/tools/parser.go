package tools

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultServerName = "local"
	maxCallSize       = 10 * 1024 * 1024
	snippetLength     = 200
)

var (
	toolRegex = regexp.MustCompile(`(?s)<tool>.*?</tool>`)

	// ampersandRegex matches a complete XML entity or a lone ampersand.
	ampersandRegex = regexp.MustCompile(`&(?:amp|lt|gt|quot|apos|#\d+|#x[0-9a-fA-F]+);|&`)
)

// ParseToolCall extracts the first tool call from text.
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>browser_type</tool_name>
//	<arguments>
//	  <selector>#search</selector>
//	  <text><![CDATA[rock & roll]]></text>
//	</arguments>
//	</tool>
//
// It returns the call and the text around it. server_name defaults to
// "local".
func ParseToolCall(text string) (*ToolCall, string, error) {
	if len(text) > maxCallSize {
		return nil, text, fmt.Errorf("tool call XML exceeds maximum size of %d bytes", maxCallSize)
	}

	loc := toolRegex.FindStringIndex(text)
	if loc == nil {
		return nil, text, fmt.Errorf("no tool call found in text")
	}
	raw := text[loc[0]:loc[1]]

	var call ToolCall
	if err := UnmarshalXMLWithFallback([]byte(raw), &call); err != nil {
		return nil, text, fmt.Errorf("failed to unmarshal tool call XML: %w\nXML snippet: %s", err, snippet(raw))
	}
	if call.ToolName == "" {
		return nil, text, fmt.Errorf("tool_name is required in tool call")
	}
	if call.ServerName == "" {
		call.ServerName = defaultServerName
	}

	remaining := strings.TrimSpace(strings.TrimSpace(text[:loc[0]]) + "\n" + strings.TrimSpace(text[loc[1]:]))
	return &call, remaining, nil
}

// HasToolCall reports whether text contains a complete tool call.
func HasToolCall(text string) bool {
	return toolRegex.MatchString(text)
}

// UnmarshalXMLWithFallback unmarshals XML. A failed parse is retried once
// with lone ampersands escaped.
func UnmarshalXMLWithFallback(data []byte, v interface{}) error {
	if err := xml.Unmarshal(data, v); err == nil {
		return nil
	}
	return xml.Unmarshal(escapeUnescapedAmpersands(data), v)
}

// escapeUnescapedAmpersands replaces lone "&" with "&amp;" and leaves
// existing entities alone.
func escapeUnescapedAmpersands(data []byte) []byte {
	return ampersandRegex.ReplaceAllFunc(data, func(m []byte) []byte {
		if len(m) == 1 {
			return []byte("&amp;")
		}
		return m
	})
}

// argNode is one element of an arguments block.
type argNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []argNode `xml:",any"`
}

// XMLToMap returns the trimmed text of each leaf child of the arguments
// element, keyed by element name. Empty leaves and elements with children
// are left out.
func XMLToMap(data []byte) (map[string]interface{}, error) {
	var root argNode
	if err := UnmarshalXMLWithFallback(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	result := make(map[string]interface{}, len(root.Children))
	for _, child := range root.Children {
		if len(child.Children) > 0 {
			continue
		}
		if text := strings.TrimSpace(child.Text); text != "" {
			result[child.XMLName.Local] = text
		}
	}
	return result, nil
}

func snippet(s string) string {
	if len(s) <= snippetLength {
		return s
	}
	return s[:snippetLength] + "..."
}
