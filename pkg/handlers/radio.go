package handlers

import (
	"context"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// RadioHandler checks a radio button unless it already is.
type RadioHandler struct {
	Ctx    ExecutionContext
	Action types.RadioAction
}

func (h *RadioHandler) Validate() error {
	return requireLocator(types.ActionRadio, h.Action.Locator)
}

func (h *RadioHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	err := h.Ctx.withRetry(ctx, func(ctx context.Context) error {
		el, err := h.Ctx.Page.Element(ctx, a.Locator, browser.Attached, h.Ctx.timeout())
		if err != nil {
			return err
		}
		checked, err := el.Checked(ctx)
		if err != nil {
			return err
		}
		if checked {
			h.Ctx.Logger.Debug().Str("locator", a.Locator).Msg("Radio already checked")
			return nil
		}
		if err := el.Click(ctx); err != nil {
			return err
		}
		h.Ctx.Logger.Info().Str("locator", a.Locator).Msg("Radio checked")
		return h.Ctx.Detector.Check(ctx, h.Ctx.Page, false)
	})
	if err != nil {
		return nil, err
	}
	return ok(""), nil
}
