package actions

import (
	"context"

	"github.com/entrhq/forge-playwright/pkg/types"
)

// Definition is the host-facing metadata of an action.
type Definition struct {
	Kind        Kind
	Similes     []string
	Description string
	Examples    [][]types.ActionExample
}

func example(user, agent string, kind Kind) []types.ActionExample {
	return []types.ActionExample{
		{Name: "{{name1}}", Content: types.Content{Text: user}},
		{Name: "{{name2}}", Content: types.Content{Text: agent, Actions: []string{string(kind)}}},
	}
}

var definitions = map[Kind]Definition{
	KindNavigate: {
		Kind:        KindNavigate,
		Similes:     []string{"GO_TO", "OPEN_URL", "VISIT", "BROWSE_TO", "LOAD_PAGE"},
		Description: "Navigate to a URL in the browser.",
		Examples: [][]types.ActionExample{
			example("Go to https://example.com", "Navigating to the website...", KindNavigate),
		},
	},
	KindClick: {
		Kind:        KindClick,
		Similes:     []string{"CLICK_ELEMENT", "PRESS_BUTTON", "TAP_ELEMENT"},
		Description: "Click an element on the page.",
		Examples: [][]types.ActionExample{
			example("Click the submit button", "Clicking the button...", KindClick),
		},
	},
	KindType: {
		Kind:        KindType,
		Similes:     []string{"INPUT_TEXT", "ENTER_TEXT", "FILL_INPUT", "WRITE_TEXT"},
		Description: "Type text into an input element.",
		Examples: [][]types.ActionExample{
			example(`Type "Hello World" into the search box`, "Typing the text...", KindType),
		},
	},
	KindSelect: {
		Kind:        KindSelect,
		Similes:     []string{"SELECT_OPTION", "CHOOSE_OPTION", "PICK_OPTION"},
		Description: "Select an option in a dropdown element.",
		Examples: [][]types.ActionExample{
			example("Pick Germany in the country dropdown", "Selecting the option...", KindSelect),
		},
	},
	KindScreenshot: {
		Kind:        KindScreenshot,
		Similes:     []string{"TAKE_SCREENSHOT", "CAPTURE_SCREEN", "SAVE_SCREENSHOT", "SCREEN_CAPTURE"},
		Description: "Take a screenshot of the current page.",
		Examples: [][]types.ActionExample{
			example("Take a screenshot and save it as page.png", "Taking screenshot...", KindScreenshot),
		},
	},
	KindPageContent: {
		Kind:        KindPageContent,
		Similes:     []string{"READ_PAGE", "GET_PAGE_TEXT", "EXTRACT_CONTENT"},
		Description: "Read the text content of the current page.",
		Examples: [][]types.ActionExample{
			example("What does the page say?", "Reading the page...", KindPageContent),
		},
	},
}

// Definitions returns the metadata of every action in registration order.
func Definitions() []Definition {
	defs := make([]Definition, 0, len(Kinds))
	for _, k := range Kinds {
		defs = append(defs, definitions[k])
	}
	return defs
}

// Lookup returns the definition of kind.
func Lookup(kind Kind) (Definition, bool) {
	def, ok := definitions[kind]
	return def, ok
}

// Actions returns host actions for every kind, bound to a.
func (a *Adapter) Actions() []types.Action {
	actions := make([]types.Action, 0, len(Kinds))
	for _, def := range Definitions() {
		actions = append(actions, types.Action{
			Name:        string(def.Kind),
			Similes:     def.Similes,
			Description: def.Description,
			Examples:    def.Examples,
			Validate:    alwaysValid,
			Handler:     a.Handle(def.Kind),
		})
	}
	return actions
}

// alwaysValid defers every check to the handler, which reports a readable
// failure instead of silently skipping the action.
func alwaysValid(context.Context, types.Runtime, *types.Memory, *types.State) bool {
	return true
}
