// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
)

// Page is a scripted page. Locators are matched verbatim against the keys
// elements were registered under; no CSS is evaluated. Sleeps return
// immediately and are recorded.
type Page struct {
	mu          sync.Mutex
	elements    map[string]*Element
	lists       map[string][]*Element
	url         string
	sleeps      []time.Duration
	navigations []string
	lookups     []string
}

func NewPage() *Page {
	return &Page{
		elements: map[string]*Element{},
		lists:    map[string][]*Element{},
	}
}

// Add registers el under locator and returns it.
func (p *Page) Add(locator string, el *Element) *Element {
	p.mu.Lock()
	defer p.mu.Unlock()
	el.page = p
	p.elements[locator] = el
	return el
}

// Remove detaches the element registered under locator.
func (p *Page) Remove(locator string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.elements, locator)
}

// AddList registers the elements returned by Elements(selector).
func (p *Page) AddList(selector string, els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range els {
		el.page = p
	}
	p.lists[selector] = append(p.lists[selector], els...)
}

// SetURL moves the page without recording a navigation.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// Sleeps returns every duration passed to Sleep, in order.
func (p *Page) Sleeps() []time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]time.Duration(nil), p.sleeps...)
}

// Navigations returns every URL passed to Navigate, in order.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Lookups returns the locators passed to Element, in order.
func (p *Page) Lookups() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lookups...)
}

func (p *Page) get(locator string) (*Element, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	el, ok := p.elements[locator]
	return el, ok
}

func (p *Page) Element(ctx context.Context, locator string, state browser.WaitState, timeout time.Duration) (browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.lookups = append(p.lookups, locator)
	p.mu.Unlock()

	el, ok := p.get(locator)
	if !ok {
		return nil, fmt.Errorf("%w: %s (waited %s)", browser.ErrNotFound, locator, timeout)
	}
	if state == browser.Visible && !el.isShown() {
		return nil, fmt.Errorf("element %s not visible within %s", locator, timeout)
	}
	return el, nil
}

func (p *Page) Elements(ctx context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]browser.Element, 0, len(p.lists[selector]))
	for _, el := range p.lists[selector] {
		out = append(out, el)
	}
	return out, nil
}

func (p *Page) IsVisible(ctx context.Context, locator string) (bool, error) {
	el, ok := p.get(locator)
	if !ok {
		return false, nil
	}
	return el.isShown(), nil
}

// WaitHidden succeeds when the element is absent, hidden or marked HidesOnWait.
func (p *Page) WaitHidden(ctx context.Context, locator string, timeout time.Duration) error {
	el, ok := p.get(locator)
	if !ok || !el.isShown() {
		return nil
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.HidesOnWait {
		el.Shown = false
		return nil
	}
	return fmt.Errorf("%s still visible after %s: %w", locator, timeout, context.DeadlineExceeded)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, url)
	p.url = url
	return nil
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.sleeps = append(p.sleeps, d)
	p.mu.Unlock()
	return ctx.Err()
}

// Element is a scripted node. Exported fields may be set before the element
// is registered; afterwards use the accessors.
type Element struct {
	mu   sync.Mutex
	page *Page

	Shown       bool
	Content     string
	Val         string
	Attrs       map[string]string
	IsChecked   bool
	IsExpanded  bool
	Options     []string
	HidesOnWait bool
	// Checkable makes a click set IsChecked.
	Checkable bool
	// Toggle makes a click flip IsExpanded.
	Toggle bool
	// ClickErrs are returned by successive clicks before clicks succeed.
	ClickErrs []error
	// OnClick runs after a successful click.
	OnClick func(p *Page)

	clicks    int
	sets      []string
	clears    int
	selection string
}

// Visible returns a shown element with the given text.
func Visible(text string) *Element {
	return &Element{Shown: true, Content: text}
}

// Hidden returns an attached but hidden element.
func Hidden() *Element {
	return &Element{}
}

func (e *Element) isShown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Shown
}

// SetShown changes visibility after registration.
func (e *Element) SetShown(shown bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Shown = shown
}

// Clicks returns the number of successful clicks.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// Sets returns every value passed to SetValue.
func (e *Element) Sets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.sets...)
}

// Clears returns the number of Clear calls.
func (e *Element) Clears() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clears
}

// CurrentValue returns the element value.
func (e *Element) CurrentValue() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Val
}

// Selected returns the last option chosen through SelectOption.
func (e *Element) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection
}

func (e *Element) Visible(ctx context.Context) (bool, error) {
	return e.isShown(), nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Content, nil
}

func (e *Element) Value(ctx context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Val, nil
}

func (e *Element) Attribute(ctx context.Context, name string) (string, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.Attrs[name]
	return v, ok, nil
}

func (e *Element) SetValue(ctx context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Val = value
	e.sets = append(e.sets, value)
	return nil
}

func (e *Element) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Val = ""
	e.clears++
	return nil
}

func (e *Element) Click(ctx context.Context) error {
	e.mu.Lock()
	if len(e.ClickErrs) > 0 {
		err := e.ClickErrs[0]
		e.ClickErrs = e.ClickErrs[1:]
		e.mu.Unlock()
		return err
	}
	e.clicks++
	if e.Checkable {
		e.IsChecked = true
	}
	if e.Toggle {
		e.IsExpanded = !e.IsExpanded
	}
	hook := e.OnClick
	page := e.page
	e.mu.Unlock()

	if hook != nil {
		hook(page)
	}
	return nil
}

func (e *Element) Checked(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.IsChecked, nil
}

func (e *Element) SelectOption(ctx context.Context, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, opt := range e.Options {
		if opt == value {
			e.Val = value
			e.selection = value
			return nil
		}
	}
	return fmt.Errorf("option %q not found among [%s]", value, strings.Join(e.Options, ", "))
}

func (e *Element) Expanded(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.IsExpanded, nil
}

// ErrTransient is a convenience error for ClickErrs.
var ErrTransient = errors.New("element is not clickable at point")

var _ browser.Page = (*Page)(nil)
var _ browser.Element = (*Element)(nil)
