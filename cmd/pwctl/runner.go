package main

import (
	"context"
	"fmt"
	"io"

	"github.com/entrhq/forge-playwright/pkg/types"
)

var cliRuntime = types.StaticRuntime{ID: "pwctl"}

// runSteps dispatches each step to its plugin action and reports the
// outcome on out. It returns the number of failed steps. An unknown action
// name is an error and stops the run.
func runSteps(ctx context.Context, p *types.Plugin, steps []Step, stopOnError bool, out io.Writer) (int, error) {
	failed := 0
	for i, step := range steps {
		action, ok := p.Action(step.Action)
		if !ok {
			return failed, fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}

		var result types.Content
		ok = action.Handler(ctx, cliRuntime, nil, types.NewState(step.Content), nil, func(c types.Content) error {
			result = c
			return nil
		})

		if ok {
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("✓ "+action.Name), result.Text)
			continue
		}

		failed++
		fmt.Fprintf(out, "%s %s\n", errorStyle.Render("✗ "+action.Name), result.Text)
		if stopOnError {
			break
		}
	}
	return failed, nil
}
