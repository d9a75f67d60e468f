package core

import (
	"regexp"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// varRegex is a package-level compiled regular expression for matching {{ varName }} placeholders.
var varRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9\._-]+)\s*\}\}`)

// ResolveString substitutes every placeholder bound in vars. Unbound
// placeholders are left verbatim so a failed lookup stays visible downstream.
func ResolveString(input string, vars types.VarContext) string {
	if input == "" || len(vars) == 0 {
		return input
	}
	return varRegex.ReplaceAllStringFunc(input, func(match string) string {
		key := varRegex.FindStringSubmatch(match)[1]
		if val, ok := vars.Lookup(key); ok {
			return val
		}
		return match
	})
}

// Placeholders returns the variable names referenced by input, in order.
func Placeholders(input string) []string {
	var names []string
	for _, m := range varRegex.FindAllStringSubmatch(input, -1) {
		names = append(names, m[1])
	}
	return names
}

// ResolveAction returns a copy of a with every string field resolved. The
// original action is never modified.
func ResolveAction(a types.Action, vars types.VarContext) types.Action {
	r := func(s string) string { return ResolveString(s, vars) }
	resolveBase := func(b types.Base) types.Base {
		b.Description = r(b.Description)
		return b
	}

	switch v := a.(type) {
	case types.ProcedureAction:
		v.Base = resolveBase(v.Base)
		v.Name, v.Locator, v.Value = r(v.Name), r(v.Locator), r(v.Value)
		return v
	case types.AccordionAction:
		v.Base = resolveBase(v.Base)
		v.Locator = r(v.Locator)
		return v
	case types.FillAction:
		v.Base = resolveBase(v.Base)
		v.Locator, v.Value = r(v.Locator), r(v.Value)
		return v
	case types.AutocompleteAction:
		v.Base = resolveBase(v.Base)
		v.Locator, v.Value, v.Selection, v.OptionsLocator = r(v.Locator), r(v.Value), r(v.Selection), r(v.OptionsLocator)
		return v
	case types.RadioAction:
		v.Base = resolveBase(v.Base)
		v.Locator = r(v.Locator)
		return v
	case types.SelectAction:
		v.Base = resolveBase(v.Base)
		v.Locator, v.Value = r(v.Locator), r(v.Value)
		return v
	case types.ClickAction:
		v.Base = resolveBase(v.Base)
		v.Locator = r(v.Locator)
		return v
	case types.ExtractAction:
		v.Base = resolveBase(v.Base)
		v.Locator, v.Variable, v.Mode = r(v.Locator), r(v.Variable), r(v.Mode)
		return v
	case types.TransformAction:
		v.Base = resolveBase(v.Base)
		v.Input, v.Regex = r(v.Input), r(v.Regex)
		vars := make([]string, len(v.Variables))
		for i, name := range v.Variables {
			vars[i] = r(name)
		}
		v.Variables = vars
		return v
	case types.WaitAction:
		v.Base = resolveBase(v.Base)
		v.Value = r(v.Value)
		return v
	case types.UnsupportedAction:
		v.Base = resolveBase(v.Base)
		v.Locator = r(v.Locator)
		return v
	default:
		return a
	}
}
