// Package browser describes the live page the engine drives and implements it
// over a Chromium session.
package browser

import (
	"context"
	"errors"
	"time"
)

// WaitState is the condition an element lookup waits for.
type WaitState int

const (
	// Attached waits until the element exists in the DOM.
	Attached WaitState = iota
	// Visible waits until the element is rendered and visible.
	Visible
)

func (s WaitState) String() string {
	if s == Visible {
		return "visible"
	}
	return "attached"
}

// ErrNotFound is returned when a locator matches nothing before its timeout.
var ErrNotFound = errors.New("element not found")

// Page is the subset of a browser tab the engine needs. Locators are CSS
// selectors, optionally suffixed with :has-text("...") or written as text=....
type Page interface {
	Element(ctx context.Context, locator string, state WaitState, timeout time.Duration) (Element, error)
	// Elements returns every element matching a CSS selector without waiting.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// IsVisible reports false, not an error, when nothing matches.
	IsVisible(ctx context.Context, locator string) (bool, error)
	// WaitHidden returns once nothing matching locator is visible.
	WaitHidden(ctx context.Context, locator string, timeout time.Duration) error
	URL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	Sleep(ctx context.Context, d time.Duration) error
}

// Element is a resolved node on the page.
type Element interface {
	Visible(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
	Value(ctx context.Context) (string, error)
	// Attribute reports ok=false when the attribute is absent.
	Attribute(ctx context.Context, name string) (string, bool, error)
	SetValue(ctx context.Context, value string) error
	Clear(ctx context.Context) error
	Click(ctx context.Context) error
	Checked(ctx context.Context) (bool, error)
	// SelectOption picks the option whose value or label equals value.
	SelectOption(ctx context.Context, value string) error
	// Expanded reports whether the panel controlled by this toggle is rendered open.
	Expanded(ctx context.Context) (bool, error)
}

// Inspector exposes read-only snapshots of the page for the HTTP surface.
type Inspector interface {
	Screenshot(ctx context.Context) ([]byte, error)
	HTML(ctx context.Context) (string, error)
	CurrentState(ctx context.Context) (State, error)
}

// State is the current location of the tab.
type State struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
