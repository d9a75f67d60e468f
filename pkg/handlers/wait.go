package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// WaitHandler pauses for a number of milliseconds.
type WaitHandler struct {
	Ctx    ExecutionContext
	Action types.WaitAction
}

func (h *WaitHandler) duration() (time.Duration, error) {
	raw := strings.TrimSpace(h.Action.Value)
	if raw == "" {
		return types.DefaultWaitMs * time.Millisecond, nil
	}
	ms, err := strconv.ParseFloat(raw, 64)
	if err != nil || ms < 0 {
		return 0, fmt.Errorf("invalid wait duration %q", h.Action.Value)
	}
	return time.Duration(ms * float64(time.Millisecond)), nil
}

func (h *WaitHandler) Validate() error {
	_, err := h.duration()
	return err
}

func (h *WaitHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	d, err := h.duration()
	if err != nil {
		return nil, err
	}
	h.Ctx.Logger.Debug().Dur("duration", d).Msg("Waiting")
	if err := h.Ctx.Page.Sleep(ctx, d); err != nil {
		return nil, err
	}
	return ok(""), nil
}
