// Package guard detects page states that block interaction: a loading
// overlay that clears on its own and modal dialogs that require a human.
package guard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/log"
	"github.com/arnavsurve/pagestep/pkg/types"
)

// OverlayPolicy decides what an overlay that never clears means.
type OverlayPolicy string

const (
	OverlayWarn OverlayPolicy = "warn"
	OverlayFail OverlayPolicy = "fail"
)

const (
	DefaultOverlaySelector = "#overlay"
	DefaultDialogSelector  = ".modal-content"
	DefaultAppearDelay     = 200 * time.Millisecond
	DefaultOverlayTimeout  = 30 * time.Second
	DefaultStabilizeDelay  = 500 * time.Millisecond
)

// ErrOverlayTimeout is returned under OverlayFail when the overlay outlives its timeout.
var ErrOverlayTimeout = errors.New("loading overlay did not clear")

// BlockingDialogError reports an unexpected modal. It is fatal: retrying
// cannot dismiss it.
type BlockingDialogError struct {
	Text string
}

func (e *BlockingDialogError) Error() string {
	return fmt.Sprintf("blocking dialog detected: %s", e.Text)
}

// IsFatal reports whether err, or anything it wraps, is a blocking dialog.
func IsFatal(err error) bool {
	var dialogErr *BlockingDialogError
	return errors.As(err, &dialogErr)
}

type Options struct {
	OverlaySelector string
	DialogSelector  string
	AppearDelay     time.Duration
	OverlayTimeout  time.Duration
	StabilizeDelay  time.Duration
	// AllowedDialogs lists case-insensitive substrings of dialogs that are ignored.
	AllowedDialogs []string
	Policy         OverlayPolicy
}

func (o Options) withDefaults() Options {
	if o.OverlaySelector == "" {
		o.OverlaySelector = DefaultOverlaySelector
	}
	if o.DialogSelector == "" {
		o.DialogSelector = DefaultDialogSelector
	}
	if o.AppearDelay == 0 {
		o.AppearDelay = DefaultAppearDelay
	}
	if o.OverlayTimeout == 0 {
		o.OverlayTimeout = DefaultOverlayTimeout
	}
	if o.StabilizeDelay == 0 {
		o.StabilizeDelay = DefaultStabilizeDelay
	}
	if o.Policy == "" {
		o.Policy = OverlayWarn
	}
	return o
}

type Detector struct {
	opts   Options
	logger types.Logger
}

func NewDetector(opts Options, logger types.Logger) *Detector {
	if logger == nil {
		logger = log.Nop()
	}
	return &Detector{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective settings.
func (d *Detector) Options() Options {
	return d.opts
}

// Check waits out a loading overlay and, when checkDialog is set, fails with
// a BlockingDialogError if a dialog outside the allow-list is showing.
func (d *Detector) Check(ctx context.Context, page browser.Page, checkDialog bool) error {
	if err := d.waitOverlay(ctx, page); err != nil {
		return err
	}
	if !checkDialog {
		return nil
	}
	return d.checkDialog(ctx, page)
}

func (d *Detector) waitOverlay(ctx context.Context, page browser.Page) error {
	if err := page.Sleep(ctx, d.opts.AppearDelay); err != nil {
		return err
	}

	visible, err := page.IsVisible(ctx, d.opts.OverlaySelector)
	if err != nil {
		d.logger.Debug().Err(err).Msg("Overlay check failed, treating as absent")
		return nil
	}
	if !visible {
		return nil
	}

	d.logger.Debug().Str("selector", d.opts.OverlaySelector).Msg("Loading overlay detected, waiting")
	if err := page.WaitHidden(ctx, d.opts.OverlaySelector, d.opts.OverlayTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.opts.Policy == OverlayFail {
			return fmt.Errorf("%w after %s: %v", ErrOverlayTimeout, d.opts.OverlayTimeout, err)
		}
		d.logger.Warn().Err(err).Dur("timeout", d.opts.OverlayTimeout).Msg("Loading overlay still visible, continuing")
		return nil
	}

	return page.Sleep(ctx, d.opts.StabilizeDelay)
}

func (d *Detector) checkDialog(ctx context.Context, page browser.Page) error {
	visible, err := page.IsVisible(ctx, d.opts.DialogSelector)
	if err != nil || !visible {
		return nil
	}

	el, err := page.Element(ctx, d.opts.DialogSelector, browser.Attached, time.Second)
	if err != nil {
		return nil
	}
	text, err := el.Text(ctx)
	if err != nil {
		return nil
	}
	text = normalizeDialogText(text)

	lower := strings.ToLower(text)
	for _, allowed := range d.opts.AllowedDialogs {
		if allowed != "" && strings.Contains(lower, strings.ToLower(allowed)) {
			d.logger.Info().Str("dialog", text).Msg("Ignoring allowed dialog")
			return nil
		}
	}

	d.logger.Warn().Str("dialog", text).Msg("Blocking dialog detected")
	return &BlockingDialogError{Text: text}
}

func normalizeDialogText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
