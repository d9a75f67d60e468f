package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

const pollInterval = 100 * time.Millisecond

// clearJS empties an input and fires the events frameworks listen for.
const clearJS = `() => {
	this.value = '';
	this.dispatchEvent(new Event('input', { bubbles: true }));
	this.dispatchEvent(new Event('change', { bubbles: true }));
}`

// expandedJS resolves the panel a toggle controls and reports whether it is
// rendered open. Attribute state is only a fallback when no panel is found.
const expandedJS = `() => {
	const shown = (el) => {
		if (!el) return false;
		const s = window.getComputedStyle(el);
		return s.display !== 'none' && s.visibility !== 'hidden' && el.offsetHeight > 0;
	};
	let target = null;
	const ref = this.getAttribute('aria-controls') || this.getAttribute('data-target') || this.getAttribute('href');
	if (ref) {
		const id = ref.startsWith('#') ? ref.slice(1) : ref;
		if (id) target = document.getElementById(id);
	}
	if (!target) {
		const panel = this.closest('.panel');
		if (panel) target = panel.querySelector('.panel-collapse');
	}
	if (target) return shown(target);
	return this.getAttribute('aria-expanded') === 'true';
}`

// RodPage adapts a go-rod page to Page.
type RodPage struct {
	page *rod.Page
}

func NewRodPage(page *rod.Page) *RodPage {
	return &RodPage{page: page}
}

func (p *RodPage) find(page *rod.Page, loc locator) (*rod.Element, error) {
	if loc.hasText() {
		return page.ElementR(loc.css, loc.textPattern())
	}
	return page.Element(loc.css)
}

func (p *RodPage) Element(ctx context.Context, raw string, state WaitState, timeout time.Duration) (Element, error) {
	tp := p.page.Context(ctx).Timeout(timeout)
	el, err := p.find(tp, parseLocator(raw))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s (waited %s)", ErrNotFound, raw, timeout)
		}
		return nil, fmt.Errorf("failed to find %s: %w", raw, err)
	}
	if state == Visible {
		if err := el.WaitVisible(); err != nil {
			return nil, fmt.Errorf("element %s not visible within %s: %w", raw, timeout, err)
		}
	}
	return &rodElement{el: el}, nil
}

func (p *RodPage) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", selector, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (p *RodPage) IsVisible(ctx context.Context, raw string) (bool, error) {
	loc := parseLocator(raw)
	page := p.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	if loc.hasText() {
		has, el, err = page.HasR(loc.css, loc.textPattern())
	} else {
		has, el, err = page.Has(loc.css)
	}
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", raw, err)
	}
	if !has {
		return false, nil
	}
	visible, err := el.Visible()
	if err != nil {
		// Node detached between the query and the check.
		return false, nil
	}
	return visible, nil
}

func (p *RodPage) WaitHidden(ctx context.Context, raw string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		visible, err := p.IsVisible(ctx, raw)
		if err != nil {
			return err
		}
		if !visible {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%s still visible after %s: %w", raw, timeout, context.DeadlineExceeded)
		}
		if err := Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}

func (p *RodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("failed to read page info: %w", err)
	}
	return info.URL, nil
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", url, err)
	}
	return nil
}

func (p *RodPage) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Value(ctx context.Context) (string, error) {
	v, err := e.el.Context(ctx).Property("value")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) SetValue(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select text: %w", err)
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("failed to input text: %w", err)
	}
	return nil
}

func (e *rodElement) Clear(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(clearJS)
	return err
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Checked(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Property("checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (e *rodElement) SelectOption(ctx context.Context, value string) error {
	el := e.el.Context(ctx)
	err := el.Select([]string{fmt.Sprintf(`[value="%s"]`, value)}, true, rod.SelectorTypeCSSSector)
	if err != nil {
		err = el.Select([]string{value}, true, rod.SelectorTypeText)
	}
	if err != nil {
		return fmt.Errorf("option %q not selectable: %w", value, err)
	}
	return nil
}

func (e *rodElement) Expanded(ctx context.Context) (bool, error) {
	res, err := e.el.Context(ctx).Eval(expandedJS)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}
