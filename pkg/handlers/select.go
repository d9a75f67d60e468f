package handlers

import (
	"context"
	"fmt"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// SelectHandler picks an option of a <select> by its value.
type SelectHandler struct {
	Ctx    ExecutionContext
	Action types.SelectAction
}

func (h *SelectHandler) Validate() error {
	if err := requireLocator(types.ActionSelect, h.Action.Locator); err != nil {
		return err
	}
	if h.Action.Value == "" {
		return fmt.Errorf("select action on %s requires 'value'", h.Action.Locator)
	}
	return nil
}

func (h *SelectHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	err := h.Ctx.withRetry(ctx, func(ctx context.Context) error {
		el, err := h.Ctx.Page.Element(ctx, a.Locator, browser.Attached, h.Ctx.timeout())
		if err != nil {
			return err
		}
		if err := el.SelectOption(ctx, a.Value); err != nil {
			return err
		}
		h.Ctx.Logger.Info().Str("locator", a.Locator).Str("value", a.Value).Msg("Option selected")
		return h.Ctx.Detector.Check(ctx, h.Ctx.Page, false)
	})
	if err != nil {
		return nil, err
	}
	return ok(a.Value), nil
}
