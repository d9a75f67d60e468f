package core

import (
	"fmt"

	"github.com/arnavsurve/pagestep/pkg/handlers"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// ValidateJobStructure performs the minimal shape checks needed before a job
// can run: every action has a type.
func ValidateJobStructure(doc *types.JobDocument) error {
	if doc == nil {
		return fmt.Errorf("job document is empty")
	}
	for i, raw := range doc.Actions {
		if raw.Type == "" {
			return fmt.Errorf("action %d is missing 'type'", i+1)
		}
	}
	return nil
}

// Issue is one lint finding about an action.
type Issue struct {
	Index   int
	Message string
	Warning bool
}

func (i Issue) String() string {
	level := "error"
	if i.Warning {
		level = "warning"
	}
	return fmt.Sprintf("action %d: %s: %s", i.Index+1, level, i.Message)
}

// LintJob runs every handler's Validate against the unresolved actions and
// reports placeholders that no earlier action can bind. Fields containing
// placeholders are only checked once resolved at run time, so lint errors
// on them are reported as warnings.
func LintJob(doc *types.JobDocument) []Issue {
	var issues []Issue
	bound := map[string]bool{}

	for i, action := range doc.Decode() {
		for _, name := range referencedVars(action) {
			if !bound[name] {
				issues = append(issues, Issue{Index: i, Message: fmt.Sprintf("variable %q is not bound by any earlier action", name), Warning: true})
			}
		}

		h, err := handlers.New(handlers.ExecutionContext{Action: action})
		if err != nil {
			issues = append(issues, Issue{Index: i, Message: err.Error()})
		} else if err := h.Validate(); err != nil {
			issues = append(issues, Issue{Index: i, Message: err.Error(), Warning: len(referencedVars(action)) > 0})
		}

		for _, name := range boundVars(action) {
			bound[name] = true
		}
	}
	return issues
}

func referencedVars(a types.Action) []string {
	var fields []string
	switch v := a.(type) {
	case types.ProcedureAction:
		fields = []string{v.Name, v.Locator, v.Value}
	case types.AccordionAction:
		fields = []string{v.Locator}
	case types.FillAction:
		fields = []string{v.Locator, v.Value}
	case types.AutocompleteAction:
		fields = []string{v.Locator, v.Value, v.Selection, v.OptionsLocator}
	case types.RadioAction:
		fields = []string{v.Locator}
	case types.SelectAction:
		fields = []string{v.Locator, v.Value}
	case types.ClickAction:
		fields = []string{v.Locator}
	case types.ExtractAction:
		fields = []string{v.Locator}
	case types.TransformAction:
		fields = []string{v.Input, v.Regex}
	case types.WaitAction:
		fields = []string{v.Value}
	}
	var names []string
	for _, f := range fields {
		names = append(names, Placeholders(f)...)
	}
	return names
}

func boundVars(a types.Action) []string {
	switch v := a.(type) {
	case types.ExtractAction:
		return []string{v.Variable}
	case types.TransformAction:
		return v.Variables
	}
	return nil
}
