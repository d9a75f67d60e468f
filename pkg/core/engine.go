package core

import (
	"context"
	"fmt"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/guard"
	"github.com/arnavsurve/pagestep/pkg/handlers"
	"github.com/arnavsurve/pagestep/pkg/log"
	"github.com/arnavsurve/pagestep/pkg/retry"
	"github.com/arnavsurve/pagestep/pkg/security"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// DefaultSettleDelay separates consecutive actions so page scripts can react.
const DefaultSettleDelay = time.Second

// ProgressFunc receives the percentage completed before an action starts and
// a label for it.
type ProgressFunc func(percent int, description string)

type Engine struct {
	Page        browser.Page
	Logger      types.Logger
	Detector    *guard.Detector
	Retry       retry.Policy
	Settings    handlers.Settings
	SettleDelay time.Duration
	// Redactor receives the values of SecretVars as they are bound.
	Redactor   *security.Redactor
	SecretVars []string
}

func NewEngine(page browser.Page, logger types.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		Page:        page,
		Logger:      logger,
		Detector:    guard.NewDetector(guard.Options{}, logger),
		Retry:       retry.Default(),
		SettleDelay: DefaultSettleDelay,
	}
}

// WithLogger returns a copy of the engine logging through logger. The
// detector is rebuilt so its warnings carry the same fields.
func (e *Engine) WithLogger(logger types.Logger) *Engine {
	c := *e
	c.Logger = logger
	if e.Detector != nil {
		c.Detector = guard.NewDetector(e.Detector.Options(), logger)
	}
	return &c
}

// Execute runs actions in order against the page with a fresh variable bus.
// The first failing action aborts the run; its error names the 1-based index
// and the action's description and wraps the cause.
func (e *Engine) Execute(ctx context.Context, actions []types.Action, progress ProgressFunc) (*types.JobResult, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	vars := types.VarContext{}
	n := len(actions)

	e.Logger.Info().Int("actions", n).Msg("Starting action sequence")

	for i, action := range actions {
		resolved := ResolveAction(action, vars)
		desc := types.Describe(resolved)

		progress(i*100/n, desc)

		logger := e.Logger.With().
			Int("action_index", i+1).
			Str("action", string(resolved.Kind())).
			Logger()
		logger.Info().Msgf("[Action %d/%d] %s", i+1, n, desc)

		if err := e.runAction(ctx, resolved, vars, logger); err != nil {
			logger.Error().Err(err).Msg("Action failed")
			return nil, fmt.Errorf("action %d (%s) failed: %w", i+1, desc, err)
		}

		if i < n-1 {
			if err := e.Page.Sleep(ctx, e.SettleDelay); err != nil {
				return nil, err
			}
		}
	}

	progress(100, "Sequence completed")
	e.Logger.Info().Msg("Action sequence completed")

	return &types.JobResult{
		Success:   true,
		Message:   "Sequence completed successfully",
		Actions:   n,
		Variables: e.maskSecrets(vars.Snapshot()),
	}, nil
}

func (e *Engine) runAction(ctx context.Context, action types.Action, vars types.VarContext, logger types.Logger) error {
	h, err := handlers.New(handlers.ExecutionContext{
		Action:   action,
		Page:     e.Page,
		Vars:     vars,
		Logger:   logger,
		Detector: e.Detector,
		Retry:    e.Retry,
		Settings: e.Settings,
		OnBind:   e.registerSecret,
	})
	if err != nil {
		return err
	}
	if err := h.Validate(); err != nil {
		return err
	}
	result, err := h.Run(ctx)
	if err != nil {
		return err
	}
	if result != nil && result.Value != "" {
		logger.Debug().Str("value", result.Value).Msg("Action result")
	}
	return nil
}

// registerSecret hands secret values to the redactor as they are bound, so
// the handler's own log lines are already masked.
func (e *Engine) registerSecret(name, value string) {
	if e.Redactor != nil && e.isSecret(name) {
		e.Redactor.Add(value)
	}
}

func (e *Engine) isSecret(name string) bool {
	for _, secret := range e.SecretVars {
		if secret == name {
			return true
		}
	}
	return false
}

// maskSecrets hides secret values in the variables returned with the result,
// which end up in the journal and the status endpoint.
func (e *Engine) maskSecrets(vars map[string]string) map[string]string {
	for name := range vars {
		if e.isSecret(name) {
			vars[name] = security.Mask
		}
	}
	return vars
}
