package handlers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/types"
)

var attributeModeRegex = regexp.MustCompile(`^attribute\((.+)\)$`)

// ExtractHandler reads a value off the page into the variable bus.
type ExtractHandler struct {
	Ctx    ExecutionContext
	Action types.ExtractAction
}

func (h *ExtractHandler) Validate() error {
	if err := requireLocator(types.ActionExtract, h.Action.Locator); err != nil {
		return err
	}
	if h.Action.Variable == "" {
		return fmt.Errorf("extract action on %s requires 'variable'", h.Action.Locator)
	}
	_, err := parseExtractMode(h.Action.Mode)
	return err
}

type extractMode struct {
	kind string
	attr string
}

func parseExtractMode(mode string) (extractMode, error) {
	switch mode {
	case "", types.ExtractText:
		return extractMode{kind: types.ExtractText}, nil
	case types.ExtractValue:
		return extractMode{kind: types.ExtractValue}, nil
	}
	if m := attributeModeRegex.FindStringSubmatch(mode); m != nil {
		return extractMode{kind: "attribute", attr: m[1]}, nil
	}
	return extractMode{}, fmt.Errorf("unsupported extraction mode %q", mode)
}

func (h *ExtractHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	a := h.Action
	mode, err := parseExtractMode(a.Mode)
	if err != nil {
		return nil, err
	}

	var value string
	err = h.Ctx.withRetry(ctx, func(ctx context.Context) error {
		el, err := h.Ctx.Page.Element(ctx, a.Locator, browser.Attached, h.Ctx.timeout())
		if err != nil {
			return err
		}
		switch mode.kind {
		case types.ExtractText:
			value, err = el.Text(ctx)
		case types.ExtractValue:
			value, err = el.Value(ctx)
		default:
			value, _, err = el.Attribute(ctx, mode.attr)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	h.Ctx.bind(a.Variable, value)
	h.Ctx.Logger.Info().Str("variable", a.Variable).Str("mode", a.Mode).Str("value", value).Msg("Value extracted")
	return ok(value), nil
}
