package browser

import (
	"context"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_CloseLeavesAttachedBrowserRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a browser")
	}
	if _, found := launcher.LookPath(); !found {
		t.Skip("no local Chromium")
	}
	ctx := context.Background()

	owner, err := Open(ctx, Options{Headless: true})
	require.NoError(t, err)
	defer owner.Close()

	attached, err := Open(ctx, Options{ControlURL: owner.controlURL})
	require.NoError(t, err)
	attached.Close()

	state, err := owner.CurrentState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "about:blank", state.URL)
}
