package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// AutocompleteHandler types into a typeahead field and clicks the suggestion
// whose text matches exactly, ignoring case and surrounding space.
type AutocompleteHandler struct {
	Ctx    ExecutionContext
	Action types.AutocompleteAction
}

func (h *AutocompleteHandler) Validate() error {
	if err := requireLocator(types.ActionAutocomplete, h.Action.Locator); err != nil {
		return err
	}
	if h.Action.Value == "" {
		return fmt.Errorf("autocomplete action on %s requires 'value'", h.Action.Locator)
	}
	return nil
}

func (h *AutocompleteHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	optionsLocator := a.OptionsLocator
	if optionsLocator == "" {
		optionsLocator = h.Ctx.Settings.OptionsLocator
	}
	target := a.Selection
	if target == "" {
		target = a.Value
	}

	var picked string
	err := h.Ctx.withRetry(ctx, func(ctx context.Context) error {
		page := h.Ctx.Page
		input, err := page.Element(ctx, a.Locator, browser.Visible, h.Ctx.timeout())
		if err != nil {
			return err
		}
		if err := input.Clear(ctx); err != nil {
			return fmt.Errorf("clearing %s: %w", a.Locator, err)
		}
		if err := page.Sleep(ctx, h.Ctx.Settings.AutocompletePause); err != nil {
			return err
		}
		if err := input.SetValue(ctx, a.Value); err != nil {
			return fmt.Errorf("typing into %s: %w", a.Locator, err)
		}

		if _, err := page.Element(ctx, optionsLocator, browser.Visible, h.Ctx.Settings.SuggestionTimeout); err != nil {
			h.Ctx.Logger.Warn().Str("value", a.Value).Msg("Suggestion menu did not appear")
			return fmt.Errorf("no suggestions for %q: %w", a.Value, err)
		}

		options, err := page.Elements(ctx, optionsLocator)
		if err != nil {
			return err
		}
		var available []string
		for _, opt := range options {
			visible, err := opt.Visible(ctx)
			if err != nil || !visible {
				continue
			}
			text, err := opt.Text(ctx)
			if err != nil {
				continue
			}
			text = strings.TrimSpace(text)
			if strings.EqualFold(text, strings.TrimSpace(target)) {
				if err := opt.Click(ctx); err != nil {
					return fmt.Errorf("clicking suggestion %q: %w", text, err)
				}
				picked = text
				h.Ctx.Logger.Info().Str("locator", a.Locator).Str("option", text).Msg("Suggestion selected")
				return nil
			}
			available = append(available, text)
		}
		return fmt.Errorf("no exact match for %q among suggestions [%s]", target, strings.Join(available, ", "))
	})
	if err != nil {
		return nil, err
	}
	if err := h.Ctx.Detector.Check(ctx, h.Ctx.Page, true); err != nil {
		return nil, err
	}
	return ok(picked), nil
}
