package handlers_test

import (
	"context"
	"testing"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser/browsertest"
	"github.com/arnavsurve/pagestep/pkg/handlers"
	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcedureNames(t *testing.T) {
	assert.Subset(t, handlers.ProcedureNames(), []string{"initPDA", "navigate", "resetAccordions"})
}

func TestProcedure_Unknown(t *testing.T) {
	h, err := handlers.New(newCtx(browsertest.NewPage(), types.ProcedureAction{Name: "login"}))
	require.NoError(t, err)
	assert.EqualError(t, h.Validate(), `unknown procedure "login"`)

	_, err = h.Run(context.Background())
	assert.EqualError(t, err, `unknown procedure "login"`)
}

func TestProcedure_Registered(t *testing.T) {
	called := false
	handlers.RegisterProcedure("testOnly", func(ctx context.Context, ectx handlers.ExecutionContext, action types.ProcedureAction) error {
		called = true
		assert.Equal(t, "arg", action.Value)
		return nil
	})

	_, err := run(t, newCtx(browsertest.NewPage(), types.ProcedureAction{Name: "testOnly", Value: "arg"}))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestNavigate(t *testing.T) {
	page := browsertest.NewPage()
	_, err := run(t, newCtx(page, types.ProcedureAction{Name: "navigate", Value: "https://crm.example.test/home"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://crm.example.test/home"}, page.Navigations())
}

func TestResetAccordions(t *testing.T) {
	t.Run("closes every open section", func(t *testing.T) {
		page := browsertest.NewPage()
		a := &browsertest.Element{Toggle: true, IsExpanded: true}
		b := &browsertest.Element{Toggle: true}
		c := &browsertest.Element{Toggle: true, IsExpanded: true}
		page.AddList(".accordion-toggle", a, b, c)

		_, err := run(t, newCtx(page, types.ProcedureAction{Name: "resetAccordions"}))
		require.NoError(t, err)
		assert.False(t, a.IsExpanded)
		assert.False(t, c.IsExpanded)
		assert.Equal(t, 0, b.Clicks())
		assert.Equal(t, []time.Duration{time.Second}, page.Sleeps())
	})

	t.Run("fails when a section stays open", func(t *testing.T) {
		page := browsertest.NewPage()
		stuck := &browsertest.Element{IsExpanded: true}
		page.AddList(".accordion-toggle", stuck)

		_, err := run(t, newCtx(page, types.ProcedureAction{Name: "resetAccordions"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 sections still open after 5 passes")
		assert.Equal(t, 5, stuck.Clicks())
	})
}

func pdaCtx(page *browsertest.Page) handlers.ExecutionContext {
	ectx := newCtx(page, types.ProcedureAction{Name: "initPDA"})
	ectx.Settings.PDA = handlers.PDASettings{
		StartURL:       "https://crm.example.test/GlobalSearch",
		EntryLocators:  []string{"text=Inserisci Ordine", "text=IS.0228.0601NA"},
		TargetFragment: "CPQOrder",
		URLTimeout:     2 * time.Second,
	}
	return ectx
}

func TestInitPDA(t *testing.T) {
	page := browsertest.NewPage()
	insert := page.Add("text=Inserisci Ordine", browsertest.Visible("Inserisci Ordine"))
	product := page.Add("text=IS.0228.0601NA", browsertest.Visible("IS.0228.0601NA"))
	product.OnClick = func(p *browsertest.Page) { p.SetURL("https://crm.example.test/CPQOrder?tab=1") }
	open := &browsertest.Element{Toggle: true, IsExpanded: true}
	page.AddList(".accordion-toggle", open)

	_, err := run(t, pdaCtx(page))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://crm.example.test/GlobalSearch"}, page.Navigations())
	assert.Equal(t, 1, insert.Clicks())
	assert.Equal(t, 1, product.Clicks())
	assert.False(t, open.IsExpanded)
	assert.Equal(t, []time.Duration{2 * time.Second, time.Second}, page.Sleeps())
}

func TestInitPDA_TargetNotReached(t *testing.T) {
	page := browsertest.NewPage()
	page.Add("text=Inserisci Ordine", browsertest.Visible("Inserisci Ordine"))
	page.Add("text=IS.0228.0601NA", browsertest.Visible("IS.0228.0601NA"))

	_, err := run(t, pdaCtx(page))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `target URL containing "CPQOrder" not reached within 2s`)
	assert.Len(t, page.Sleeps(), 4)
}

func TestInitPDA_RequiresConfiguration(t *testing.T) {
	_, err := run(t, newCtx(browsertest.NewPage(), types.ProcedureAction{Name: "initPDA"}))
	assert.ErrorContains(t, err, "no start URL configured")
}
