package guard_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser/browsertest"
	"github.com/arnavsurve/pagestep/pkg/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_NoOverlay(t *testing.T) {
	page := browsertest.NewPage()
	d := guard.NewDetector(guard.Options{}, nil)

	require.NoError(t, d.Check(context.Background(), page, false))
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, page.Sleeps())
}

func TestCheck_OverlayClears(t *testing.T) {
	page := browsertest.NewPage()
	overlay := page.Add("#overlay", &browsertest.Element{Shown: true, HidesOnWait: true})
	d := guard.NewDetector(guard.Options{}, nil)

	require.NoError(t, d.Check(context.Background(), page, false))
	assert.False(t, overlay.Shown)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 500 * time.Millisecond}, page.Sleeps())
}

func TestCheck_OverlayTimeoutPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  guard.OverlayPolicy
		wantErr error
	}{
		{name: "warn continues", policy: guard.OverlayWarn},
		{name: "default is warn"},
		{name: "fail surfaces error", policy: guard.OverlayFail, wantErr: guard.ErrOverlayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			page.Add("#overlay", &browsertest.Element{Shown: true})
			d := guard.NewDetector(guard.Options{Policy: tt.policy}, nil)

			err := d.Check(context.Background(), page, false)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, guard.IsFatal(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCheck_Dialog(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		shown     bool
		allowed   []string
		checkFor  bool
		wantFatal bool
	}{
		{name: "blocking dialog", text: "Cliente già presente\nin anagrafica", shown: true, checkFor: true, wantFatal: true},
		{name: "hidden dialog ignored", text: "whatever", shown: false, checkFor: true},
		{name: "not requested", text: "Errore", shown: true, checkFor: false},
		{name: "allow-listed dialog", text: "Coupon disponibile per il cliente", shown: true, allowed: []string{"COUPON"}, checkFor: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			page.Add(".modal-content", &browsertest.Element{Shown: tt.shown, Content: tt.text})
			d := guard.NewDetector(guard.Options{AllowedDialogs: tt.allowed}, nil)

			err := d.Check(context.Background(), page, tt.checkFor)
			if !tt.wantFatal {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, guard.IsFatal(err))

			var dialogErr *guard.BlockingDialogError
			require.True(t, errors.As(err, &dialogErr))
			assert.Equal(t, "Cliente già presente in anagrafica", dialogErr.Text)
		})
	}
}

func TestIsFatal_Wrapped(t *testing.T) {
	err := fmt.Errorf("action 3 (click) failed: %w", &guard.BlockingDialogError{Text: "x"})
	assert.True(t, guard.IsFatal(err))
	assert.False(t, guard.IsFatal(errors.New("plain")))
	assert.False(t, guard.IsFatal(nil))
}
