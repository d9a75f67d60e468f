package handlers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// Procedure is a named routine composed of several page interactions.
type Procedure func(ctx context.Context, ectx ExecutionContext, action types.ProcedureAction) error

var (
	proceduresMu sync.RWMutex
	// procedures stores every named routine. Built-ins register themselves in init().
	procedures = map[string]Procedure{}
)

// RegisterProcedure makes fn available to procedure actions under name.
func RegisterProcedure(name string, fn Procedure) {
	proceduresMu.Lock()
	defer proceduresMu.Unlock()
	procedures[name] = fn
}

// LookupProcedure returns the routine registered under name.
func LookupProcedure(name string) (Procedure, bool) {
	proceduresMu.RLock()
	defer proceduresMu.RUnlock()
	fn, ok := procedures[name]
	return fn, ok
}

// ProcedureNames lists registered routines in sorted order.
func ProcedureNames() []string {
	proceduresMu.RLock()
	defer proceduresMu.RUnlock()
	names := make([]string, 0, len(procedures))
	for name := range procedures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProcedureHandler runs a registered routine.
type ProcedureHandler struct {
	Ctx    ExecutionContext
	Action types.ProcedureAction
}

func (h *ProcedureHandler) Validate() error {
	if h.Action.Name == "" {
		return fmt.Errorf("procedure action requires 'name'")
	}
	if _, found := LookupProcedure(h.Action.Name); !found {
		return fmt.Errorf("unknown procedure %q", h.Action.Name)
	}
	return nil
}

func (h *ProcedureHandler) Run(ctx context.Context) (*types.ActionResult, error) {
	fn, found := LookupProcedure(h.Action.Name)
	if !found {
		return nil, fmt.Errorf("unknown procedure %q", h.Action.Name)
	}
	h.Ctx.Logger.Info().Str("procedure", h.Action.Name).Msg("Running procedure")
	if err := fn(ctx, h.Ctx, h.Action); err != nil {
		return nil, fmt.Errorf("procedure %s: %w", h.Action.Name, err)
	}
	return ok(""), nil
}
