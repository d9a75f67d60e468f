package handlers

import (
	"context"
	"fmt"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// UnsupportedHandler fails any action of an unknown type.
type UnsupportedHandler struct {
	Action types.UnsupportedAction
}

func (h *UnsupportedHandler) Validate() error {
	return h.err()
}

func (h *UnsupportedHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	return nil, h.err()
}

func (h *UnsupportedHandler) err() error {
	return fmt.Errorf("unsupported action type %q", h.Action.Type)
}
