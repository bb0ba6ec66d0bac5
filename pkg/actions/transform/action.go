// Package transform implements the script action. Despite the historical
// name, no code is executed: the action shapes new values out of the run
// context through templated output fields, which is the supported way to
// derive intermediate data for later steps.
package transform

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// ErrOutputRequired is returned when the action declares no output fields.
var ErrOutputRequired = errors.New("script action requires an 'output' object")

// Action materializes its output map. Templated values inside Output were
// already interpolated against the run context, so Execute only has to
// normalize and return them.
type Action struct {
	Output    map[string]any
	ParseJSON bool
}

// NewAction builds the action from its interpolated params. When parse_json
// is set, string outputs that hold JSON documents are decoded so later steps
// can address into them.
func NewAction(params map[string]any) (*Action, error) {
	output, _ := params["output"].(map[string]any)
	if len(output) == 0 {
		return nil, ErrOutputRequired
	}

	parseJSON, _ := params["parse_json"].(bool)

	return &Action{
		Output:    output,
		ParseJSON: parseJSON,
	}, nil
}

// Execute returns the shaped output.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "script_action")

	result := make(map[string]any, len(a.Output))

	for key, value := range a.Output {
		if a.ParseJSON {
			if s, ok := value.(string); ok {
				var decoded any
				if err := json.Unmarshal([]byte(s), &decoded); err == nil {
					result[key] = decoded

					continue
				}
			}
		}

		result[key] = value
	}

	logger.InfoContext(ctx, "Script output materialized", "fields", len(result))

	return result, nil
}
