package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

const (
	ProcedureResetAccordions = "resetAccordions"
	ProcedureInitPDA         = "initPDA"
	ProcedureNavigate        = "navigate"
)

// ResetSettings drives resetAccordions.
type ResetSettings struct {
	ToggleSelector string
	Passes         int
	PassDelay      time.Duration
}

func (r ResetSettings) withDefaults() ResetSettings {
	if r.ToggleSelector == "" {
		r.ToggleSelector = ".accordion-toggle"
	}
	if r.Passes == 0 {
		r.Passes = 5
	}
	if r.PassDelay == 0 {
		r.PassDelay = time.Second
	}
	return r
}

// PDASettings drives initPDA: open the start page, click through the entry
// points and wait until the order form URL is reached.
type PDASettings struct {
	StartURL       string
	EntryLocators  []string
	TargetFragment string
	EntryTimeout   time.Duration
	URLTimeout     time.Duration
	SettleDelay    time.Duration
	PollInterval   time.Duration
}

func (p PDASettings) withDefaults() PDASettings {
	if p.EntryTimeout == 0 {
		p.EntryTimeout = 10 * time.Second
	}
	if p.URLTimeout == 0 {
		p.URLTimeout = 30 * time.Second
	}
	if p.SettleDelay == 0 {
		p.SettleDelay = 2 * time.Second
	}
	if p.PollInterval == 0 {
		p.PollInterval = 500 * time.Millisecond
	}
	return p
}

func init() {
	RegisterProcedure(ProcedureResetAccordions, resetAccordions)
	RegisterProcedure(ProcedureInitPDA, initPDA)
	RegisterProcedure(ProcedureNavigate, navigate)
}

// resetAccordions collapses every open section, re-reading the page between
// passes since closing one panel can open another.
func resetAccordions(ctx context.Context, ectx ExecutionContext, _ types.ProcedureAction) error {
	cfg := ectx.Settings.Reset
	page := ectx.Page

	for pass := 1; pass <= cfg.Passes; pass++ {
		closed, err := closeOpenToggles(ctx, page, cfg.ToggleSelector)
		if err != nil {
			return err
		}
		if closed == 0 {
			break
		}
		ectx.Logger.Debug().Int("pass", pass).Int("closed", closed).Msg("Closed open sections")
		if err := page.Sleep(ctx, cfg.PassDelay); err != nil {
			return err
		}
	}

	toggles, err := page.Elements(ctx, cfg.ToggleSelector)
	if err != nil {
		return err
	}
	remaining := 0
	for _, t := range toggles {
		if open, err := t.Expanded(ctx); err == nil && open {
			remaining++
		}
	}
	if remaining > 0 {
		return fmt.Errorf("%d sections still open after %d passes", remaining, cfg.Passes)
	}
	ectx.Logger.Info().Msg("All sections closed")
	return nil
}

func closeOpenToggles(ctx context.Context, page browser.Page, selector string) (int, error) {
	toggles, err := page.Elements(ctx, selector)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, t := range toggles {
		open, err := t.Expanded(ctx)
		if err != nil || !open {
			continue
		}
		if err := t.Click(ctx); err != nil {
			continue
		}
		closed++
	}
	return closed, nil
}

func initPDA(ctx context.Context, ectx ExecutionContext, action types.ProcedureAction) error {
	cfg := ectx.Settings.PDA
	page := ectx.Page
	logger := ectx.Logger

	startURL := action.Value
	if startURL == "" {
		startURL = cfg.StartURL
	}
	if startURL == "" {
		return fmt.Errorf("no start URL configured")
	}
	if cfg.TargetFragment == "" {
		return fmt.Errorf("no target URL fragment configured")
	}

	logger.Info().Str("url", startURL).Msg("Opening order entry page")
	if err := page.Navigate(ctx, startURL); err != nil {
		return err
	}

	for _, locator := range cfg.EntryLocators {
		el, err := page.Element(ctx, locator, browser.Visible, cfg.EntryTimeout)
		if err != nil {
			return err
		}
		if err := el.Click(ctx); err != nil {
			return fmt.Errorf("clicking %s: %w", locator, err)
		}
	}

	current, err := waitForURL(ctx, page, cfg.TargetFragment, cfg.URLTimeout, cfg.PollInterval)
	if err != nil {
		return err
	}
	logger.Info().Str("url", current).Msg("Order form reached")

	if err := page.Sleep(ctx, cfg.SettleDelay); err != nil {
		return err
	}
	return resetAccordions(ctx, ectx, action)
}

// waitForURL polls the page URL until it contains fragment.
func waitForURL(ctx context.Context, page browser.Page, fragment string, timeout, interval time.Duration) (string, error) {
	var waited time.Duration
	for {
		current, err := page.URL(ctx)
		if err != nil {
			return "", err
		}
		if strings.Contains(current, fragment) {
			return current, nil
		}
		if waited >= timeout {
			return "", fmt.Errorf("target URL containing %q not reached within %s, current: %s", fragment, timeout, current)
		}
		if err := page.Sleep(ctx, interval); err != nil {
			return "", err
		}
		waited += interval
	}
}

func navigate(ctx context.Context, ectx ExecutionContext, action types.ProcedureAction) error {
	if action.Value == "" {
		return fmt.Errorf("navigate requires 'value' with the target URL")
	}
	return ectx.Page.Navigate(ctx, action.Value)
}
