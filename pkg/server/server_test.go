package server_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arnavsurve/pagestep/pkg/browser"
	"github.com/arnavsurve/pagestep/pkg/core"
	"github.com/arnavsurve/pagestep/pkg/jobs"
	"github.com/arnavsurve/pagestep/pkg/server"
	"github.com/arnavsurve/pagestep/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInspector struct {
	png   []byte
	html  string
	state browser.State
	err   error
}

func (f *fakeInspector) Screenshot(ctx context.Context) ([]byte, error) { return f.png, f.err }
func (f *fakeInspector) HTML(ctx context.Context) (string, error)       { return f.html, f.err }
func (f *fakeInspector) CurrentState(ctx context.Context) (browser.State, error) {
	return f.state, f.err
}

type harness struct {
	manager  *jobs.Manager
	srv      *httptest.Server
	release  chan struct{}
	received chan []types.Action
}

// newHarness serves a manager whose jobs block until release is closed.
func newHarness(t *testing.T, inspector browser.Inspector) *harness {
	t.Helper()
	h := &harness{release: make(chan struct{}), received: make(chan []types.Action, 8)}
	h.manager = jobs.NewManager(func(ctx context.Context, logger types.Logger, actions []types.Action, progress core.ProgressFunc) (*types.JobResult, error) {
		h.received <- actions
		<-h.release
		return &types.JobResult{Success: true, Actions: len(actions)}, nil
	}, nil, nil)

	h.srv = httptest.NewServer(server.NewRouter(server.NewHandlers(h.manager, inspector, nil)))
	t.Cleanup(func() {
		h.srv.Close()
		select {
		case <-h.release:
		default:
			close(h.release)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.manager.Shutdown(ctx)
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, h.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func (h *harness) finish(t *testing.T, id string) types.Job {
	t.Helper()
	close(h.release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	job, err := h.manager.Wait(ctx, id)
	require.NoError(t, err)
	return job
}

func TestExecuteJob(t *testing.T) {
	tests := []struct {
		name string
		body string
		id   string
	}{
		{
			name: "wrapped document with id",
			body: `{"pdaId": "PDA-77", "data": {"name": "Attivazione", "actions": [{"type": "fill", "locator": "#nome", "value": "Mario"}, {"type": "wait", "value": 500}]}}`,
			id:   "PDA-77",
		},
		{
			name: "bare document",
			body: `{"name": "Attivazione", "actions": [{"type": "click", "locator": "#avanti"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)

			status, body := h.do(t, http.MethodPost, "/execute-job", tt.body)
			require.Equal(t, http.StatusAccepted, status)
			assert.Equal(t, true, body["success"])

			id, _ := body["pdaId"].(string)
			require.NotEmpty(t, id)
			if tt.id != "" {
				assert.Equal(t, tt.id, id)
			} else {
				assert.True(t, strings.HasPrefix(id, "execute-job_"))
			}
			assert.Equal(t, "/job-status/"+id, body["statusUrl"])

			actions := <-h.received
			assert.NotEmpty(t, actions)

			job := h.finish(t, id)
			assert.Equal(t, types.JobStatusCompleted, job.Status)
			assert.Equal(t, "Attivazione", job.Name)
		})
	}
}

func TestExecuteJob_DecodesActionValues(t *testing.T) {
	h := newHarness(t, nil)
	status, body := h.do(t, http.MethodPost, "/execute-job",
		`{"pdaId": "w", "actions": [{"type": "wait", "value": 1500}, {"type": "fill", "locator": "#cap", "value": 20121}]}`)
	require.Equal(t, http.StatusAccepted, status, body)

	actions := <-h.received
	require.Len(t, actions, 2)
	assert.Equal(t, types.WaitAction{Value: "1500"}, actions[0])
	fill, ok := actions[1].(types.FillAction)
	require.True(t, ok)
	assert.Equal(t, "20121", fill.Value)
	h.finish(t, "w")
}

func TestExecuteJob_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "not json", body: `{`, wantErr: "invalid request body"},
		{name: "no actions", body: `{"data": {"name": "x"}}`, wantErr: `"actions" array`},
		{name: "missing type", body: `{"actions": [{"locator": "#a"}]}`, wantErr: "action 1 is missing 'type'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			status, body := h.do(t, http.MethodPost, "/execute-job", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["error"], tt.wantErr)
			assert.Empty(t, h.manager.All())
		})
	}
}

func TestExecuteJob_DuplicateRunningID(t *testing.T) {
	h := newHarness(t, nil)
	doc := `{"pdaId": "PDA-1", "actions": [{"type": "click", "locator": "#a"}]}`

	status, _ := h.do(t, http.MethodPost, "/execute-job", doc)
	require.Equal(t, http.StatusAccepted, status)
	<-h.received

	status, body := h.do(t, http.MethodPost, "/execute-job", doc)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "job already running")

	h.finish(t, "PDA-1")
}

func TestPDAInit(t *testing.T) {
	h := newHarness(t, nil)
	status, body := h.do(t, http.MethodPost, "/pda-init", `{}`)
	require.Equal(t, http.StatusAccepted, status)

	id := body["pdaId"].(string)
	assert.True(t, strings.HasPrefix(id, server.PDAJobType+"_"))
	assert.Equal(t, []types.Action{types.ProcedureAction{Name: "initPDA"}}, <-h.received)
	h.finish(t, id)
}

func TestJobStatus(t *testing.T) {
	h := newHarness(t, nil)
	status, _ := h.do(t, http.MethodPost, "/execute-job", `{"pdaId": "PDA-9", "actions": []}`)
	require.Equal(t, http.StatusAccepted, status)
	<-h.received

	status, body := h.do(t, http.MethodPost, "/job-status", `{"pdaId": "PDA-9"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "running", body["status"])
	assert.Equal(t, "PDA-9", body["id"])

	h.finish(t, "PDA-9")

	status, body = h.do(t, http.MethodGet, "/job-status/PDA-9", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])
	assert.Equal(t, float64(100), body["progress"])

	status, body = h.do(t, http.MethodPost, "/job-status", `{"id": "PDA-9"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "completed", body["status"])

	status, body = h.do(t, http.MethodPost, "/job-status", `{"pdaId": "unknown"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])

	status, _ = h.do(t, http.MethodPost, "/job-status", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListJobs(t *testing.T) {
	h := newHarness(t, nil)
	close(h.release)

	for _, id := range []string{"a", "b"} {
		status, _ := h.do(t, http.MethodPost, "/execute-job", `{"pdaId": "`+id+`", "actions": []}`)
		require.Equal(t, http.StatusAccepted, status)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := h.manager.Wait(ctx, id)
		cancel()
		require.NoError(t, err)
	}

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp, err := http.DefaultClient.Do(mustRequest(t, method, h.srv.URL+"/jobs"))
		require.NoError(t, err)
		var list []types.Job
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
		resp.Body.Close()

		require.Len(t, list, 2)
		assert.Equal(t, "a", list[0].ID)
		assert.Equal(t, "b", list[1].ID)
	}
}

func mustRequest(t *testing.T, method, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	return req
}

func TestPageEndpoints(t *testing.T) {
	inspector := &fakeInspector{
		png:   []byte{0x89, 'P', 'N', 'G'},
		html:  "<html><body>CPQ</body></html>",
		state: browser.State{URL: "https://crm.example.test/CPQOrder", Title: "Ordine"},
	}
	h := newHarness(t, inspector)

	status, body := h.do(t, http.MethodPost, "/page-screenshot", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, base64.StdEncoding.EncodeToString(inspector.png), body["screenshot"])

	status, body = h.do(t, http.MethodPost, "/page-code", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, inspector.html, body["html"])

	status, body = h.do(t, http.MethodPost, "/current-page", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "https://crm.example.test/CPQOrder", body["url"])
	assert.Equal(t, "Ordine", body["title"])

	inspector.err = errors.New("target closed")
	status, body = h.do(t, http.MethodPost, "/current-page", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "target closed", body["error"])
}

func TestPageEndpoints_NoSession(t *testing.T) {
	h := newHarness(t, nil)
	for _, path := range []string{"/page-screenshot", "/page-code", "/current-page"} {
		status, body := h.do(t, http.MethodPost, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, status, path)
		assert.Equal(t, "no browser session", body["error"])
	}
}
