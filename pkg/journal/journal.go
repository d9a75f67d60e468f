// Package journal persists terminal job records. Entries are only ever
// appended.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/arnavsurve/pagestep/pkg/types"
)

// Entry is a job record stamped with the time it was journaled.
type Entry struct {
	types.Job
	Timestamp time.Time `json:"timestamp"`
}

type Journal interface {
	Append(ctx context.Context, job types.Job) error
	Close() error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Append(context.Context, types.Job) error { return nil }
func (Nop) Close() error                            { return nil }

// Tee appends to every journal in order and joins their errors.
type Tee []Journal

func (t Tee) Append(ctx context.Context, job types.Job) error {
	var errs []error
	for _, j := range t {
		if err := j.Append(ctx, job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t Tee) Close() error {
	var errs []error
	for _, j := range t {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
