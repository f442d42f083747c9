package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crucible/internal/config"
	"crucible/internal/llm"
	"crucible/internal/sandbox"
	"crucible/internal/storage"
	"crucible/internal/storage/sqlite"
)

// stubGen returns canned snippets, one per call, sticking on the last.
type stubGen struct {
	codes []string
	err   error
	calls int
}

func (g *stubGen) Generate(_ context.Context, _ llm.Request) (*llm.Generation, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return &llm.Generation{Code: code, Explanation: "stub explanation", Raw: code, Model: "stub-model"}, nil
}

func (g *stubGen) GenerateStream(ctx context.Context, req llm.Request, _ llm.StreamHandler) (*llm.Generation, error) {
	return g.Generate(ctx, req)
}

func (g *stubGen) Available() bool { return true }

func newTestServer(t *testing.T, gen llm.Client) *Server {
	t.Helper()

	pol := sandbox.DefaultPolicy()
	pol.MaxExecutionTime = 2 * time.Second
	eng, err := sandbox.New(pol, nil, zerolog.Nop())
	require.NoError(t, err)

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.Throttle = 4

	profiles := map[string]*llm.Profile{
		"fast": {Name: "fast", Model: "fast-model"},
	}

	return New(cfg, eng, gen, store, profiles, zerolog.Nop())
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleExecute(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": "print(2 + 2)"})
	require.Equal(t, http.StatusOK, rec.Code)

	run := decodeBody[storage.Run](t, rec)
	assert.True(t, run.Success)
	assert.Equal(t, "4\n", run.Output)
	assert.Equal(t, storage.KindExecute, run.Kind)
	assert.NotEmpty(t, run.ID)

	// The run is recorded and fetchable
	rec = doJSON(t, s, http.MethodGet, "/api/runs/"+run.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[storage.Run](t, rec)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "print(2 + 2)", got.Code)
}

func TestHandleExecuteRequiresCode(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/execute", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExecutePolicyViolation(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": `const os = require("os");`})
	require.Equal(t, http.StatusOK, rec.Code)

	run := decodeBody[storage.Run](t, rec)
	assert.False(t, run.Success)
	assert.Contains(t, run.Error, `disallowed import "os"`)
}

func TestHandleCheck(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/check", map[string]string{"code": `eval(require("fs"))`})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[checkResponse](t, rec)
	assert.False(t, resp.Valid)
	require.Len(t, resp.Violations, 2)
	assert.Equal(t, `blocked identifier "eval"`, resp.Violations[0].Message)
	assert.Equal(t, `disallowed import "fs"`, resp.Violations[1].Message)

	rec = doJSON(t, s, http.MethodPost, "/api/check", map[string]string{"code": "print(1)"})
	resp = decodeBody[checkResponse](t, rec)
	assert.True(t, resp.Valid)
	assert.NotNil(t, resp.Violations)
	assert.Empty(t, resp.Violations)
}

func TestHandleValidate(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/validate", map[string]string{"prompt": "Sum the numbers from 1 to 100"})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decodeBody[llm.TaskValidation](t, rec)
	assert.True(t, v.Valid)
	assert.Empty(t, v.Suggestions)

	rec = doJSON(t, s, http.MethodPost, "/api/validate", map[string]string{"prompt": "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	v = decodeBody[llm.TaskValidation](t, rec)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Suggestions)
}

func TestHandleGenerateUnavailable(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/generate", map[string]string{"prompt": "add two numbers"})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["suggestions"])
}

func TestHandleGenerate(t *testing.T) {
	gen := &stubGen{codes: []string{"print(40 + 2)"}}
	s := newTestServer(t, gen)

	rec := doJSON(t, s, http.MethodPost, "/api/generate", map[string]string{"prompt": "print forty-two"})
	require.Equal(t, http.StatusOK, rec.Code)

	g := decodeBody[llm.Generation](t, rec)
	assert.Equal(t, "print(40 + 2)", g.Code)
	assert.Equal(t, "stub-model", g.Model)
}

func TestHandleGenerateRejectsHopelessPrompt(t *testing.T) {
	s := newTestServer(t, &stubGen{codes: []string{"print(1)"}})

	rec := doJSON(t, s, http.MethodPost, "/api/generate", map[string]string{"prompt": "hi"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.NotEmpty(t, body["error"])
	assert.NotEmpty(t, body["suggestions"])
}

func TestHandleGenerateUnknownProfile(t *testing.T) {
	s := newTestServer(t, &stubGen{codes: []string{"print(1)"}})

	rec := doJSON(t, s, http.MethodPost, "/api/generate", map[string]string{
		"prompt":  "anything",
		"profile": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGenerateAndExecute(t *testing.T) {
	gen := &stubGen{codes: []string{"print(40 + 2)"}}
	s := newTestServer(t, gen)

	rec := doJSON(t, s, http.MethodPost, "/api/generate-and-execute", map[string]string{"prompt": "print forty-two"})
	require.Equal(t, http.StatusOK, rec.Code)

	run := decodeBody[storage.Run](t, rec)
	assert.Equal(t, storage.KindGenerate, run.Kind)
	assert.True(t, run.Success)
	assert.Equal(t, "42\n", run.Output)
	assert.Equal(t, "print forty-two", run.Prompt)
	assert.Equal(t, "stub explanation", run.Explanation)

	rec = doJSON(t, s, http.MethodGet, "/api/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGenerateAndExecuteRepairs(t *testing.T) {
	gen := &stubGen{codes: []string{`throw new Error("wrong")`, "print(7)"}}
	s := newTestServer(t, gen)

	rec := doJSON(t, s, http.MethodPost, "/api/generate-and-execute", map[string]string{"prompt": "print seven"})
	require.Equal(t, http.StatusOK, rec.Code)

	run := decodeBody[storage.Run](t, rec)
	assert.True(t, run.Success)
	assert.Equal(t, "7\n", run.Output)
	assert.Equal(t, 2, gen.calls)
}

func TestHandlePolicy(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	p := decodeBody[policyView](t, rec)
	assert.Contains(t, p.AllowedImports, "math")
	assert.Contains(t, p.BlockedNames, "eval")
	assert.Equal(t, 2.0, p.MaxExecutionSeconds)
	assert.Equal(t, sandbox.DefaultPolicy().MaxOutputChars, p.MaxOutputChars)
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(t, nil)

	doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": "print(1)"})
	doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": `throw new Error("no")`})

	rec := doJSON(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decodeBody[statsResponse](t, rec)
	assert.Equal(t, 2.0, stats.MaxExecutionTime)
	assert.Equal(t, "restricted", stats.SecurityLevel)
	assert.False(t, stats.GeneratorAvailable)
	assert.True(t, sort.StringsAreSorted(stats.AllowedImports))
	assert.False(t, stats.Timestamp.IsZero())
	assert.Equal(t, 0, stats.ActiveExecutions)

	require.NotNil(t, stats.Runs)
	assert.Equal(t, 2, stats.Runs.TotalRuns)
	assert.Equal(t, 1, stats.Runs.Succeeded)
	assert.Equal(t, 1, stats.Runs.Failed)
}

func TestHandleListRuns(t *testing.T) {
	s := newTestServer(t, &stubGen{codes: []string{"print(2)"}})

	doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": "print(1)"})
	doJSON(t, s, http.MethodPost, "/api/generate-and-execute", map[string]string{"prompt": "print two"})

	rec := doJSON(t, s, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeBody[[]storage.Run](t, rec)
	assert.Len(t, runs, 2)

	rec = doJSON(t, s, http.MethodGet, "/api/runs?kind=generate", nil)
	runs = decodeBody[[]storage.Run](t, rec)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.KindGenerate, runs[0].Kind)

	rec = doJSON(t, s, http.MethodGet, "/api/runs?kind=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetRunNotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/runs/doesnotexist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDeleteRun(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": "print(1)"})
	run := decodeBody[storage.Run](t, rec)

	rec = doJSON(t, s, http.MethodDelete, "/api/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/api/runs/"+run.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleExportRun(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/execute", map[string]string{"code": "print(1)"})
	run := decodeBody[storage.Run](t, rec)

	rec = doJSON(t, s, http.MethodGet, "/api/runs/"+run.ID+"/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# Run "+run.ID)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")

	rec = doJSON(t, s, http.MethodGet, "/api/runs/"+run.ID+"/export?format=json", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := decodeBody[storage.Run](t, rec)
	assert.Equal(t, run.ID, exported.ID)

	rec = doJSON(t, s, http.MethodGet, "/api/runs/"+run.ID+"/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleListActiveEmpty(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = doJSON(t, s, http.MethodDelete, "/api/active/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaygroundServed(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "crucible")

	// Unknown paths fall back to the page
	rec = doJSON(t, s, http.MethodGet, "/anything", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
