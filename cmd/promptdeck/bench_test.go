package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlorentedev/promptdeck/internal/adapter"
	"github.com/mlorentedev/promptdeck/internal/server"
	"github.com/mlorentedev/promptdeck/internal/store"
)

func newMockServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg, err := adapter.NewRegistry(nil)
	require.NoError(t, err)

	records, err := store.OpenBolt(filepath.Join(t.TempDir(), "bench.db"), "bench", nil)
	require.NoError(t, err)
	t.Cleanup(func() { records.Close() })

	ts := httptest.NewServer(server.NewRouter(server.Deps{
		Models:       &adapter.Factory{Runtime: &adapter.MockRuntime{Registry: reg}, Registry: reg, MaxTokens: 200},
		Records:      records,
		HistoryLimit: 5,
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRunBench_DiscoversModelAndWritesReport(t *testing.T) {
	ts := newMockServer(t)
	out := filepath.Join(t.TempDir(), "report.json")

	var buf bytes.Buffer
	err := runBench(&buf, ts.Client(), &benchOptions{
		url:         ts.URL + "/",
		runs:        1,
		temperature: "0.5",
		topP:        "0.9",
		jsonOut:     out,
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "using model: amazon.titan-text-express-v1")
	assert.Contains(t, buf.String(), "Total runs: 4 (4 ok, 0 failed)")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var rep report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, ts.URL, rep.URL)
	require.Len(t, rep.Results, len(Samples))
	for _, r := range rep.Results {
		assert.Empty(t, r.Error)
		assert.Positive(t, r.OutChars)
	}
}

func TestRunBench_ReportsFailures(t *testing.T) {
	ts := newMockServer(t)

	var buf bytes.Buffer
	err := runBench(&buf, ts.Client(), &benchOptions{
		url:         ts.URL,
		model:       "cohere.command-text-v14",
		runs:        1,
		temperature: "0.5",
		topP:        "0.9",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 of 4 runs failed")
	assert.Contains(t, buf.String(), "HTTP 400")
	assert.Contains(t, buf.String(), "all 4 runs failed")
}

func TestDiscoverModel_Errors(t *testing.T) {
	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer empty.Close()

	_, err := discoverModel(empty.Client(), empty.URL)
	assert.EqualError(t, err, "no models available")

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()

	_, err = discoverModel(broken.Client(), broken.URL)
	assert.ErrorContains(t, err, "returned 500")
}

func TestOutputText(t *testing.T) {
	page := `<h2>Output</h2>
  <pre id="output_text">a &lt;b&gt; &amp; c</pre>`
	assert.Equal(t, "a <b> & c", outputText(page))
	assert.Empty(t, outputText("<html></html>"))
	assert.Empty(t, outputText(`<pre id="output_text">unterminated`))
}

func TestRootCmdFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "mock", "mock-delay", "port"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.NotNil(t, newBenchCmd().Flags().Lookup("top-p"))
}
