// Package handlers executes single actions against the live page.
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/guard"
	"github.com/arnavsurve/pagestep/pkg/log"
	"github.com/arnavsurve/pagestep/pkg/retry"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// Handler runs one resolved action.
type Handler interface {
	Validate() error
	Run(ctx context.Context) (*types.ActionResult, error)
}

const (
	DefaultElementTimeout    = 5 * time.Second
	DefaultAccordionDelay    = time.Second
	DefaultAutocompletePause = 500 * time.Millisecond
	DefaultSuggestionTimeout = 5 * time.Second
	DefaultOptionsLocator    = "ul.dropdown-menu li a"
)

// Settings tunes handler timing and well-known selectors.
type Settings struct {
	ElementTimeout    time.Duration
	AccordionDelay    time.Duration
	AutocompletePause time.Duration
	SuggestionTimeout time.Duration
	OptionsLocator    string
	Reset             ResetSettings
	PDA               PDASettings
}

// WithDefaults fills every zero field.
func (s Settings) WithDefaults() Settings {
	if s.ElementTimeout == 0 {
		s.ElementTimeout = DefaultElementTimeout
	}
	if s.AccordionDelay == 0 {
		s.AccordionDelay = DefaultAccordionDelay
	}
	if s.AutocompletePause == 0 {
		s.AutocompletePause = DefaultAutocompletePause
	}
	if s.SuggestionTimeout == 0 {
		s.SuggestionTimeout = DefaultSuggestionTimeout
	}
	if s.OptionsLocator == "" {
		s.OptionsLocator = DefaultOptionsLocator
	}
	s.Reset = s.Reset.withDefaults()
	s.PDA = s.PDA.withDefaults()
	return s
}

// ExecutionContext carries everything a handler needs for one action.
type ExecutionContext struct {
	Action   types.Action
	Page     browser.Page
	Vars     types.VarContext
	Logger   types.Logger
	Detector *guard.Detector
	Retry    retry.Policy
	Settings Settings
	// OnBind sees every variable write before anything is logged about it.
	OnBind func(name, value string)
}

// New returns the handler for ectx.Action.
func New(ectx ExecutionContext) (Handler, error) {
	if ectx.Logger == nil {
		ectx.Logger = log.Nop()
	}
	if ectx.Detector == nil {
		ectx.Detector = guard.NewDetector(guard.Options{}, ectx.Logger)
	}
	if ectx.Vars == nil {
		ectx.Vars = types.VarContext{}
	}
	ectx.Settings = ectx.Settings.WithDefaults()

	switch a := ectx.Action.(type) {
	case types.ProcedureAction:
		return &ProcedureHandler{Ctx: ectx, Action: a}, nil
	case types.AccordionAction:
		return &AccordionHandler{Ctx: ectx, Action: a}, nil
	case types.FillAction:
		return &FillHandler{Ctx: ectx, Action: a}, nil
	case types.AutocompleteAction:
		return &AutocompleteHandler{Ctx: ectx, Action: a}, nil
	case types.RadioAction:
		return &RadioHandler{Ctx: ectx, Action: a}, nil
	case types.SelectAction:
		return &SelectHandler{Ctx: ectx, Action: a}, nil
	case types.ClickAction:
		return &ClickHandler{Ctx: ectx, Action: a}, nil
	case types.ExtractAction:
		return &ExtractHandler{Ctx: ectx, Action: a}, nil
	case types.TransformAction:
		return &TransformHandler{Ctx: ectx, Action: a}, nil
	case types.WaitAction:
		return &WaitHandler{Ctx: ectx, Action: a}, nil
	case types.UnsupportedAction:
		return &UnsupportedHandler{Action: a}, nil
	case nil:
		return nil, fmt.Errorf("no action to run")
	default:
		return nil, fmt.Errorf("no handler for action %T", a)
	}
}

// timeout is the element wait for this action.
func (e ExecutionContext) timeout() time.Duration {
	if t := e.Action.Common().Timeout; t > 0 {
		return t
	}
	return e.Settings.ElementTimeout
}

// bind stores a variable on the bus.
func (e ExecutionContext) bind(name, value string) {
	if e.OnBind != nil {
		e.OnBind(name, value)
	}
	e.Vars.Set(name, value)
}

// withRetry runs fn under the retry policy, sleeping through the page.
func (e ExecutionContext) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	p := e.Retry
	if p.Sleep == nil {
		p.Sleep = e.Page.Sleep
	}
	if p.OnRetry == nil {
		p.OnRetry = func(attempt int, delay time.Duration, err error) {
			e.Logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Action attempt failed, retrying")
		}
	}
	return retry.Do(ctx, p, fn)
}

func ok(value string) *types.ActionResult {
	return &types.ActionResult{Success: true, Value: value}
}

func requireLocator(kind types.ActionType, locator string) error {
	if locator == "" {
		return fmt.Errorf("%s action requires 'locator'", kind)
	}
	return nil
}
