package handlers

import (
	"context"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// ClickHandler clicks a visible element and checks for blocking dialogs.
type ClickHandler struct {
	Ctx    ExecutionContext
	Action types.ClickAction
}

func (h *ClickHandler) Validate() error {
	return requireLocator(types.ActionClick, h.Action.Locator)
}

func (h *ClickHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	err := h.Ctx.withRetry(ctx, func(ctx context.Context) error {
		el, err := h.Ctx.Page.Element(ctx, a.Locator, browser.Visible, h.Ctx.timeout())
		if err != nil {
			return err
		}
		if err := el.Click(ctx); err != nil {
			return err
		}
		h.Ctx.Logger.Info().Str("locator", a.Locator).Msg("Clicked")
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Once clicked, a failed check must not click again.
	if err := h.Ctx.Detector.Check(ctx, h.Ctx.Page, true); err != nil {
		return nil, err
	}
	return ok(""), nil
}
