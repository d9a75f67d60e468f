package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActionType is the wire name of an action kind.
type ActionType string

const (
	ActionProcedure      ActionType = "procedure"
	ActionOpenAccordion  ActionType = "open_accordion"
	ActionCloseAccordion ActionType = "close_accordion"
	ActionFill           ActionType = "fill"
	ActionText           ActionType = "text"
	ActionAutocomplete   ActionType = "autocomplete"
	ActionRadio          ActionType = "radio"
	ActionSelect         ActionType = "select"
	ActionClick          ActionType = "click"
	ActionButton         ActionType = "button"
	ActionExtract        ActionType = "extract"
	ActionTransform      ActionType = "transform"
	ActionWait           ActionType = "wait"
)

// Extraction modes understood by extract actions. Attribute reads use the
// "attribute(name)" form.
const (
	ExtractText  = "text"
	ExtractValue = "value"
)

// DefaultWaitMs is used by wait actions that carry neither value nor ms.
const DefaultWaitMs = 1000

// RawAction is the wire form of an action as produced by the rule generator.
// Value may be a string or a number.
type RawAction struct {
	Type           string   `json:"type" yaml:"type"`
	Locator        string   `json:"locator,omitempty" yaml:"locator,omitempty"`
	Name           string   `json:"name,omitempty" yaml:"name,omitempty"`
	Value          any      `json:"value,omitempty" yaml:"value,omitempty"`
	Selection      string   `json:"selection,omitempty" yaml:"selection,omitempty"`
	OptionsLocator string   `json:"options_locator,omitempty" yaml:"options_locator,omitempty"`
	Variable       string   `json:"variable,omitempty" yaml:"variable,omitempty"`
	Variables      []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Mode           string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Input          any      `json:"input,omitempty" yaml:"input,omitempty"`
	Regex          string   `json:"regex,omitempty" yaml:"regex,omitempty"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Timeout        int      `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Ms             any      `json:"ms,omitempty" yaml:"ms,omitempty"`
}

// Action is one decoded step. The set of implementations is closed: every
// kind has its own struct carrying only the fields it needs.
type Action interface {
	Kind() ActionType
	Common() Base
	isAction()
}

// Base holds the fields shared by every action kind.
type Base struct {
	Description string
	// Timeout overrides the element wait timeout when non-zero.
	Timeout time.Duration
}

func (b Base) Common() Base { return b }
func (Base) isAction()      {}

type ProcedureAction struct {
	Base
	Name    string
	Locator string
	Value   string
}

type AccordionAction struct {
	Base
	Locator string
	Open    bool
}

type FillAction struct {
	Base
	Locator string
	Value   string
}

type AutocompleteAction struct {
	Base
	Locator string
	Value   string
	// Selection is the option text to pick; empty means Value.
	Selection      string
	OptionsLocator string
}

type RadioAction struct {
	Base
	Locator string
}

type SelectAction struct {
	Base
	Locator string
	Value   string
}

type ClickAction struct {
	Base
	Locator string
}

type ExtractAction struct {
	Base
	Locator  string
	Variable string
	Mode     string
}

type TransformAction struct {
	Base
	Input     string
	Regex     string
	Variables []string
}

type WaitAction struct {
	Base
	// Value is the duration in milliseconds, kept as text so it can be templated.
	Value string
}

// UnsupportedAction carries a type the engine does not know. Running it fails.
type UnsupportedAction struct {
	Base
	Type    string
	Locator string
}

func (ProcedureAction) Kind() ActionType     { return ActionProcedure }
func (FillAction) Kind() ActionType          { return ActionFill }
func (AutocompleteAction) Kind() ActionType  { return ActionAutocomplete }
func (RadioAction) Kind() ActionType         { return ActionRadio }
func (SelectAction) Kind() ActionType        { return ActionSelect }
func (ClickAction) Kind() ActionType         { return ActionClick }
func (ExtractAction) Kind() ActionType       { return ActionExtract }
func (TransformAction) Kind() ActionType     { return ActionTransform }
func (WaitAction) Kind() ActionType          { return ActionWait }
func (u UnsupportedAction) Kind() ActionType { return ActionType(u.Type) }

func (a AccordionAction) Kind() ActionType {
	if a.Open {
		return ActionOpenAccordion
	}
	return ActionCloseAccordion
}

// Decode converts the wire form into its typed variant. Unknown types decode
// to UnsupportedAction so the failure surfaces at the action's position.
func (r RawAction) Decode() Action {
	base := Base{
		Description: r.Description,
		Timeout:     time.Duration(r.Timeout) * time.Millisecond,
	}
	value, _ := ValueString(r.Value)

	kind := ActionType(strings.TrimSpace(r.Type))
	switch kind {
	case ActionProcedure:
		return ProcedureAction{Base: base, Name: r.Name, Locator: r.Locator, Value: value}
	case ActionOpenAccordion, ActionCloseAccordion:
		target := firstNonEmpty(r.Name, value, r.Locator)
		return AccordionAction{Base: base, Locator: target, Open: kind == ActionOpenAccordion}
	case ActionFill, ActionText:
		return FillAction{Base: base, Locator: r.Locator, Value: value}
	case ActionAutocomplete:
		return AutocompleteAction{Base: base, Locator: r.Locator, Value: value, Selection: r.Selection, OptionsLocator: r.OptionsLocator}
	case ActionRadio:
		return RadioAction{Base: base, Locator: r.Locator}
	case ActionSelect:
		return SelectAction{Base: base, Locator: r.Locator, Value: value}
	case ActionClick, ActionButton:
		return ClickAction{Base: base, Locator: r.Locator}
	case ActionExtract:
		mode := r.Mode
		if mode == "" {
			mode = ExtractText
		}
		return ExtractAction{Base: base, Locator: r.Locator, Variable: r.Variable, Mode: mode}
	case ActionTransform:
		input, ok := ValueString(r.Input)
		if !ok {
			input = value
		}
		return TransformAction{Base: base, Input: input, Regex: r.Regex, Variables: append([]string(nil), r.Variables...)}
	case ActionWait:
		ms, ok := ValueString(r.Value)
		if !ok || ms == "" {
			ms, ok = ValueString(r.Ms)
		}
		if !ok || ms == "" {
			ms = strconv.Itoa(DefaultWaitMs)
		}
		return WaitAction{Base: base, Value: ms}
	default:
		return UnsupportedAction{Base: base, Type: r.Type, Locator: r.Locator}
	}
}

// Describe returns the human readable label used for progress and errors:
// the explicit description, else the action's name or locator, else a
// synthesized fallback.
func Describe(a Action) string {
	if d := a.Common().Description; d != "" {
		return d
	}
	var target string
	switch v := a.(type) {
	case ProcedureAction:
		target = firstNonEmpty(v.Name, v.Locator)
	case AccordionAction:
		target = v.Locator
	case FillAction:
		target = v.Locator
	case AutocompleteAction:
		target = v.Locator
	case RadioAction:
		target = v.Locator
	case SelectAction:
		target = v.Locator
	case ClickAction:
		target = v.Locator
	case ExtractAction:
		target = v.Locator
	case UnsupportedAction:
		target = v.Locator
	case WaitAction:
		return fmt.Sprintf("Wait %sms", v.Value)
	}
	if target != "" {
		return target
	}
	return fmt.Sprintf("%s on element", a.Kind())
}

// ValueString renders a scalar wire value as text. The boolean reports
// whether a value was present at all.
func ValueString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
