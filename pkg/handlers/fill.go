package handlers

import (
	"context"
	"fmt"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// FillHandler replaces the value of a text input.
type FillHandler struct {
	Ctx    ExecutionContext
	Action types.FillAction
}

func (h *FillHandler) Validate() error {
	return requireLocator(types.ActionFill, h.Action.Locator)
}

func (h *FillHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	err := h.Ctx.withRetry(ctx, func(ctx context.Context) error {
		el, err := h.Ctx.Page.Element(ctx, a.Locator, browser.Visible, h.Ctx.timeout())
		if err != nil {
			return err
		}
		if err := el.Clear(ctx); err != nil {
			return fmt.Errorf("clearing %s: %w", a.Locator, err)
		}
		if err := el.SetValue(ctx, a.Value); err != nil {
			return fmt.Errorf("filling %s: %w", a.Locator, err)
		}
		h.Ctx.Logger.Info().Str("locator", a.Locator).Str("value", a.Value).Msg("Field filled")
		return h.Ctx.Detector.Check(ctx, h.Ctx.Page, false)
	})
	if err != nil {
		return nil, err
	}
	return ok(a.Value), nil
}
