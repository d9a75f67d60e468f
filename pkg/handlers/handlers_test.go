package handlers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/browser/browsertest"
	"github.com/arnavsurve/pagestep/pkg/guard"
	"github.com/arnavsurve/pagestep/pkg/handlers"
	"github.com/arnavsurve/pagestep/pkg/retry"
	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCtx(page *browsertest.Page, action types.Action) handlers.ExecutionContext {
	return handlers.ExecutionContext{
		Action: action,
		Page:   page,
		Vars:   types.VarContext{},
		Retry:  retry.Policy{Retries: 2, Delay: time.Second},
	}
}

func run(t *testing.T, ectx handlers.ExecutionContext) (*types.ActionResult, error) {
	t.Helper()
	h, err := handlers.New(ectx)
	require.NoError(t, err)
	return h.Run(context.Background())
}

func TestNew_EveryKindHasAHandler(t *testing.T) {
	raws := []types.RawAction{
		{Type: "procedure", Name: "navigate", Value: "https://example.test"},
		{Type: "open_accordion", Locator: "a.toggle"},
		{Type: "close_accordion", Locator: "a.toggle"},
		{Type: "fill", Locator: "#a", Value: "x"},
		{Type: "text", Locator: "#a", Value: "x"},
		{Type: "autocomplete", Locator: "#a", Value: "x"},
		{Type: "radio", Locator: "#a"},
		{Type: "select", Locator: "#a", Value: "x"},
		{Type: "click", Locator: "#a"},
		{Type: "button", Locator: "#a"},
		{Type: "extract", Locator: "#a", Variable: "v"},
		{Type: "transform", Input: "x", Regex: "(x)", Variables: []string{"v"}},
		{Type: "wait", Value: 10},
		{Type: "hover", Locator: "#a"},
	}
	for _, raw := range raws {
		t.Run(raw.Type, func(t *testing.T) {
			h, err := handlers.New(newCtx(browsertest.NewPage(), raw.Decode()))
			require.NoError(t, err)
			require.NotNil(t, h)
		})
	}
}

func TestFill(t *testing.T) {
	page := browsertest.NewPage()
	field := page.Add("#nome", &browsertest.Element{Shown: true, Val: "old"})

	res, err := run(t, newCtx(page, types.FillAction{Locator: "#nome", Value: "Mario"}))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Mario", field.CurrentValue())
	assert.Equal(t, 1, field.Clears())
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, page.Sleeps())
}

func TestFill_MissingElementExhaustsRetries(t *testing.T) {
	page := browsertest.NewPage()

	_, err := run(t, newCtx(page, types.FillAction{Locator: "#missing", Value: "x"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, browser.ErrNotFound))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, page.Sleeps())
	assert.Len(t, page.Lookups(), 3)
}

func TestFill_TimeoutOverride(t *testing.T) {
	page := browsertest.NewPage()
	ectx := newCtx(page, types.FillAction{Base: types.Base{Timeout: 50 * time.Millisecond}, Locator: "#missing"})
	ectx.Retry = retry.Policy{}

	_, err := run(t, ectx)
	assert.ErrorContains(t, err, "waited 50ms")
}

func TestRadio_TwiceClicksOnce(t *testing.T) {
	page := browsertest.NewPage()
	radio := page.Add("#sesso_m", &browsertest.Element{Checkable: true})

	for i := 0; i < 2; i++ {
		res, err := run(t, newCtx(page, types.RadioAction{Locator: "#sesso_m"}))
		require.NoError(t, err)
		assert.True(t, res.Success)
	}
	assert.Equal(t, 1, radio.Clicks())
	assert.True(t, radio.IsChecked)
}

func TestSelect(t *testing.T) {
	page := browsertest.NewPage()
	sel := page.Add("#provincia", &browsertest.Element{Options: []string{"MI", "RM"}})

	_, err := run(t, newCtx(page, types.SelectAction{Locator: "#provincia", Value: "RM"}))
	require.NoError(t, err)
	assert.Equal(t, "RM", sel.Selected())

	ectx := newCtx(page, types.SelectAction{Locator: "#provincia", Value: "TO"})
	ectx.Retry = retry.Policy{}
	_, err = run(t, ectx)
	assert.ErrorContains(t, err, `option "TO" not found`)
}

func TestClick_BlockingDialogIsFatal(t *testing.T) {
	page := browsertest.NewPage()
	btn := page.Add("#avanti", browsertest.Visible("Avanti"))
	page.Add(".modal-content", browsertest.Visible("Attenzione:\nordine già esistente"))

	_, err := run(t, newCtx(page, types.ClickAction{Locator: "#avanti"}))
	require.Error(t, err)
	assert.True(t, guard.IsFatal(err))
	assert.Contains(t, err.Error(), "ordine già esistente")
	assert.Equal(t, 1, btn.Clicks())
}

func TestClick_AllowedDialogPasses(t *testing.T) {
	page := browsertest.NewPage()
	page.Add("#verifica", browsertest.Visible("Verifica copertura"))
	page.Add(".modal-content", browsertest.Visible("Esito verifica copertura: OK"))

	ectx := newCtx(page, types.ClickAction{Locator: "#verifica"})
	ectx.Detector = guard.NewDetector(guard.Options{AllowedDialogs: []string{"verifica copertura"}}, nil)

	_, err := run(t, ectx)
	assert.NoError(t, err)
}

func TestClick_RetriesTransientFailure(t *testing.T) {
	page := browsertest.NewPage()
	btn := page.Add("#avanti", &browsertest.Element{Shown: true, ClickErrs: []error{browsertest.ErrTransient}})

	res, err := run(t, newCtx(page, types.ClickAction{Locator: "#avanti"}))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, btn.Clicks())
	assert.Equal(t, time.Second, page.Sleeps()[0])
}

func TestClick_StuckOverlayDoesNotClickAgain(t *testing.T) {
	page := browsertest.NewPage()
	submit := page.Add("#invia", browsertest.Visible("Invia"))
	page.Add("#overlay", browsertest.Visible(""))

	ectx := newCtx(page, types.ClickAction{Locator: "#invia"})
	ectx.Detector = guard.NewDetector(guard.Options{Policy: guard.OverlayFail}, nil)

	_, err := run(t, ectx)
	require.Error(t, err)
	assert.ErrorIs(t, err, guard.ErrOverlayTimeout)
	assert.Equal(t, 1, submit.Clicks())
}

func TestAccordion(t *testing.T) {
	tests := []struct {
		name       string
		expanded   bool
		open       bool
		wantClicks int
	}{
		{name: "open closed section", expanded: false, open: true, wantClicks: 1},
		{name: "open already open section", expanded: true, open: true, wantClicks: 0},
		{name: "close open section", expanded: true, open: false, wantClicks: 1},
		{name: "close already closed section", expanded: false, open: false, wantClicks: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			toggle := page.Add("a.accordion-toggle", &browsertest.Element{Shown: true, Toggle: true, IsExpanded: tt.expanded})

			_, err := run(t, newCtx(page, types.AccordionAction{Locator: "a.accordion-toggle", Open: tt.open}))
			require.NoError(t, err)
			assert.Equal(t, tt.wantClicks, toggle.Clicks())
			assert.Equal(t, tt.open, toggle.IsExpanded)
			if tt.wantClicks > 0 {
				// animation delay, then the overlay check pause
				assert.Equal(t, []time.Duration{time.Second, 200 * time.Millisecond}, page.Sleeps())
			} else {
				assert.Empty(t, page.Sleeps())
			}
		})
	}
}

func TestAccordion_TransientClickIsRetried(t *testing.T) {
	page := browsertest.NewPage()
	toggle := page.Add("a.accordion-toggle", &browsertest.Element{Shown: true, Toggle: true, ClickErrs: []error{browsertest.ErrTransient}})

	_, err := run(t, newCtx(page, types.AccordionAction{Locator: "a.accordion-toggle", Open: true}))
	require.NoError(t, err)
	assert.Equal(t, 1, toggle.Clicks())
	assert.True(t, toggle.IsExpanded)
	assert.Equal(t, []time.Duration{time.Second, time.Second, 200 * time.Millisecond}, page.Sleeps())
}

func TestAutocomplete(t *testing.T) {
	newPage := func() (*browsertest.Page, *browsertest.Element, *browsertest.Element) {
		page := browsertest.NewPage()
		input := page.Add("#comune", &browsertest.Element{Shown: true})
		page.Add("ul.dropdown-menu li a", browsertest.Visible("ROMANO"))
		romano := browsertest.Visible("ROMANO")
		roma := browsertest.Visible("  ROMA ")
		page.AddList("ul.dropdown-menu li a", browsertest.Hidden(), romano, roma)
		_ = input
		return page, romano, roma
	}

	t.Run("exact case-insensitive match", func(t *testing.T) {
		page, romano, roma := newPage()
		res, err := run(t, newCtx(page, types.AutocompleteAction{Locator: "#comune", Value: "roma"}))
		require.NoError(t, err)
		assert.Equal(t, "ROMA", res.Value)
		assert.Equal(t, 1, roma.Clicks())
		assert.Equal(t, 0, romano.Clicks())
		assert.Equal(t, 500*time.Millisecond, page.Sleeps()[0])
	})

	t.Run("selection overrides value", func(t *testing.T) {
		page, romano, _ := newPage()
		_, err := run(t, newCtx(page, types.AutocompleteAction{Locator: "#comune", Value: "rom", Selection: "Romano"}))
		require.NoError(t, err)
		assert.Equal(t, 1, romano.Clicks())
	})

	t.Run("no match lists options", func(t *testing.T) {
		page, _, _ := newPage()
		ectx := newCtx(page, types.AutocompleteAction{Locator: "#comune", Value: "Milano"})
		ectx.Retry = retry.Policy{}
		_, err := run(t, ectx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no exact match for "Milano"`)
		assert.Contains(t, err.Error(), "ROMANO, ROMA")
	})

	t.Run("stuck overlay does not pick again", func(t *testing.T) {
		page, _, roma := newPage()
		page.Add("#overlay", browsertest.Visible(""))
		ectx := newCtx(page, types.AutocompleteAction{Locator: "#comune", Value: "roma"})
		ectx.Detector = guard.NewDetector(guard.Options{Policy: guard.OverlayFail}, nil)

		_, err := run(t, ectx)
		assert.ErrorIs(t, err, guard.ErrOverlayTimeout)
		assert.Equal(t, 1, roma.Clicks())
	})

	t.Run("custom options locator", func(t *testing.T) {
		page := browsertest.NewPage()
		page.Add("#comune", &browsertest.Element{Shown: true})
		page.Add(".tt-suggestion", browsertest.Visible("TORINO"))
		torino := browsertest.Visible("TORINO")
		page.AddList(".tt-suggestion", torino)

		_, err := run(t, newCtx(page, types.AutocompleteAction{Locator: "#comune", Value: "Torino", OptionsLocator: ".tt-suggestion"}))
		require.NoError(t, err)
		assert.Equal(t, 1, torino.Clicks())
	})
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want string
	}{
		{name: "text", mode: "text", want: "02 12345678"},
		{name: "default mode is text", mode: "", want: "02 12345678"},
		{name: "value", mode: "value", want: "0212345678"},
		{name: "attribute", mode: "attribute(data-prefix)", want: "02"},
		{name: "missing attribute", mode: "attribute(title)", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			page.Add("#numero", &browsertest.Element{
				Content: "02 12345678",
				Val:     "0212345678",
				Attrs:   map[string]string{"data-prefix": "02"},
			})
			ectx := newCtx(page, types.ExtractAction{Locator: "#numero", Variable: "numero", Mode: tt.mode})

			res, err := run(t, ectx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
			got, ok := ectx.Vars.Lookup("numero")
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_InvalidMode(t *testing.T) {
	h, err := handlers.New(newCtx(browsertest.NewPage(), types.ExtractAction{Locator: "#x", Variable: "v", Mode: "html"}))
	require.NoError(t, err)
	assert.ErrorContains(t, h.Validate(), `unsupported extraction mode "html"`)
}

func TestTransform(t *testing.T) {
	t.Run("binds groups in order", func(t *testing.T) {
		ectx := newCtx(browsertest.NewPage(), types.TransformAction{
			Input:     "0212345678",
			Regex:     `^(02)(.+)$`,
			Variables: []string{"prefisso", "numero"},
		})
		_, err := run(t, ectx)
		require.NoError(t, err)
		assert.Equal(t, "02", ectx.Vars["prefisso"])
		assert.Equal(t, "12345678", ectx.Vars["numero"])
	})

	t.Run("no match leaves variables unset", func(t *testing.T) {
		ectx := newCtx(browsertest.NewPage(), types.TransformAction{Input: "abc", Regex: `^(\d+)$`, Variables: []string{"n"}})
		res, err := run(t, ectx)
		require.NoError(t, err)
		assert.True(t, res.Success)
		_, ok := ectx.Vars.Lookup("n")
		assert.False(t, ok)
	})

	t.Run("more variables than groups", func(t *testing.T) {
		ectx := newCtx(browsertest.NewPage(), types.TransformAction{Input: "ab", Regex: `(a)b`, Variables: []string{"x", "y"}})
		_, err := run(t, ectx)
		require.NoError(t, err)
		assert.Equal(t, "a", ectx.Vars["x"])
		_, ok := ectx.Vars.Lookup("y")
		assert.False(t, ok)
	})

	t.Run("invalid regex fails", func(t *testing.T) {
		_, err := run(t, newCtx(browsertest.NewPage(), types.TransformAction{Input: "x", Regex: `(`, Variables: []string{"x"}}))
		assert.ErrorContains(t, err, "invalid regex")
	})
}

func TestWait(t *testing.T) {
	tests := []struct {
		name    string
		raw     types.RawAction
		want    time.Duration
		wantErr bool
	}{
		{name: "value", raw: types.RawAction{Type: "wait", Value: 250}, want: 250 * time.Millisecond},
		{name: "ms", raw: types.RawAction{Type: "wait", Ms: "1500"}, want: 1500 * time.Millisecond},
		{name: "default", raw: types.RawAction{Type: "wait"}, want: time.Second},
		{name: "garbage", raw: types.RawAction{Type: "wait", Value: "soon"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			_, err := run(t, newCtx(page, tt.raw.Decode()))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []time.Duration{tt.want}, page.Sleeps())
		})
	}
}

func TestUnsupported(t *testing.T) {
	_, err := run(t, newCtx(browsertest.NewPage(), types.RawAction{Type: "hover", Locator: "#x"}.Decode()))
	assert.EqualError(t, err, `unsupported action type "hover"`)
}
