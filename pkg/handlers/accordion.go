package handlers

import (
	"context"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// AccordionHandler opens or closes a collapsible section. It only clicks the
// toggle when the rendered state differs from the requested one.
type AccordionHandler struct {
	Ctx    ExecutionContext
	Action types.AccordionAction
}

func (h *AccordionHandler) Validate() error {
	return requireLocator(h.Action.Kind(), h.Action.Locator)
}

func (h *AccordionHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	page := h.Ctx.Page
	logger := h.Ctx.Logger

	toggled := false
	err := h.Ctx.withRetry(ctx, func(ctx context.Context) error {
		el, err := page.Element(ctx, a.Locator, browser.Attached, h.Ctx.timeout())
		if err != nil {
			return err
		}
		expanded, err := el.Expanded(ctx)
		if err != nil {
			return err
		}
		if expanded == a.Open {
			return nil
		}
		if err := el.Click(ctx); err != nil {
			return err
		}
		toggled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !toggled {
		logger.Debug().Str("locator", a.Locator).Bool("open", a.Open).Msg("Accordion already in requested state")
		return ok(""), nil
	}
	logger.Info().Str("locator", a.Locator).Bool("open", a.Open).Msg("Accordion toggled")
	if err := page.Sleep(ctx, h.Ctx.Settings.AccordionDelay); err != nil {
		return nil, err
	}
	if err := h.Ctx.Detector.Check(ctx, page, false); err != nil {
		return nil, err
	}
	return ok(""), nil
}
