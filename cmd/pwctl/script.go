package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Script is a YAML list of browser actions run in order.
//
//	stop_on_error: true
//	steps:
//	  - action: NAVIGATE
//	    url: https://example.com
//	  - action: SCREENSHOT
//	    path: out/example.png
//	    options:
//	      fullPage: true
type Script struct {
	// StopOnError aborts the run at the first failed step.
	StopOnError bool   `yaml:"stop_on_error"`
	Steps       []Step `yaml:"steps"`
}

// Step is one action. Every key other than action becomes action content.
type Step struct {
	Action  string
	Content map[string]any
}

// UnmarshalYAML reads a step from a flat mapping.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	action, ok := raw["action"].(string)
	if !ok || strings.TrimSpace(action) == "" {
		return fmt.Errorf("line %d: step needs an action", node.Line)
	}
	delete(raw, "action")

	s.Action = strings.ToUpper(strings.TrimSpace(action))
	s.Content = raw
	return nil
}

// ParseScript decodes a script.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("script has no steps")
	}
	return &script, nil
}

// LoadScript reads and decodes the script at path.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is given by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return ParseScript(data)
}

// parseAssignments turns key=value arguments into action content.
func parseAssignments(args []string) (map[string]any, error) {
	content := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("argument %q must look like key=value", arg)
		}
		content[key] = value
	}
	return content, nil
}
