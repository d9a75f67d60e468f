package handlers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// TransformHandler binds capture groups of a regex match to variables.
// No match leaves the variables untouched and is not an error.
type TransformHandler struct {
	Ctx    ExecutionContext
	Action types.TransformAction
}

func (h *TransformHandler) Validate() error {
	if h.Action.Regex == "" {
		return fmt.Errorf("transform action requires 'regex'")
	}
	if len(h.Action.Variables) == 0 {
		return fmt.Errorf("transform action requires 'variables'")
	}
	return nil
}

func (h *TransformHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	re, err := regexp.Compile(a.Regex)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", a.Regex, err)
	}

	match := re.FindStringSubmatch(a.Input)
	if match == nil {
		h.Ctx.Logger.Warn().Str("input", a.Input).Str("regex", a.Regex).Msg("Transform did not match, variables left unset")
		return ok(""), nil
	}

	for i, name := range a.Variables {
		if name == "" || i+1 >= len(match) {
			continue
		}
		h.Ctx.bind(name, match[i+1])
		h.Ctx.Logger.Debug().Str("variable", name).Str("value", match[i+1]).Msg("Variable bound")
	}
	return ok(match[0]), nil
}
