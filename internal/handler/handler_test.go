package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mlorentedev/promptdeck/internal/adapter"
	"github.com/mlorentedev/promptdeck/internal/store"
)

type stubRuntime struct {
	body  string
	err   error
	calls int
	last  []byte
}

func (s *stubRuntime) InvokeModel(_ context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	s.calls++
	s.last = params.Body
	if s.err != nil {
		return nil, s.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(s.body)}, nil
}

// memStore keeps records in insertion order.
type memStore struct {
	recs      map[string]store.Record
	order     []string
	err       error
	lastLimit int
}

func newMemStore() *memStore { return &memStore{recs: map[string]store.Record{}} }

func (m *memStore) Put(_ context.Context, rec store.Record) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.recs[rec.Key()]; !ok {
		m.order = append(m.order, rec.Key())
	}
	m.recs[rec.Key()] = rec
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (store.Record, bool, error) {
	if m.err != nil {
		return store.Record{}, false, m.err
	}
	rec, ok := m.recs[key]
	return rec, ok, nil
}

func (m *memStore) Scan(_ context.Context, limit int) ([]store.Record, error) {
	m.lastLimit = limit
	if m.err != nil {
		return nil, m.err
	}
	out := []store.Record{}
	for _, k := range m.order {
		if len(out) == limit {
			break
		}
		out = append(out, m.recs[k])
	}
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return m.err }
func (m *memStore) Close() error               { return nil }

var fixedNow = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local) }

func testFactory(t *testing.T, rt adapter.Runtime) *adapter.Factory {
	t.Helper()
	reg, err := adapter.NewRegistry(nil)
	require.NoError(t, err)
	return &adapter.Factory{Runtime: rt, Registry: reg, MaxTokens: 1000, Logger: zap.NewNop()}
}

func postForm(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/invoke_model", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func validForm() url.Values {
	return url.Values{
		"input_text":  {"hello"},
		"temperature": {"0.5"},
		"top_p":       {"0.9"},
		"modelId":     {"amazon.titan-text-express-v1"},
	}
}

func TestIndex(t *testing.T) {
	reg, err := adapter.NewRegistry(nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	Index(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	for _, m := range reg.Models() {
		assert.Contains(t, body, m.ID)
	}
	assert.Contains(t, body, `name="input_text"`)
	assert.NotContains(t, body, `id="output_text"`)
}

func TestInvokeTitanEndToEnd(t *testing.T) {
	rt := &stubRuntime{body: `{"results":[{"outputText":"Hi there"}]}`}
	records := newMemStore()
	h := Invoke(testFactory(t, rt), records, fixedNow, zap.NewNop())

	w := postForm(h, validForm())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `<pre id="output_text">Hi there</pre>`)
	assert.Equal(t,
		`{"inputText":"User: hello \nBot","textGenerationConfig":{"maxTokenCount":1000,"stopSequences":[],"temperature":0.5,"topP":0.9}}`,
		string(rt.last))

	rec, ok, err := records.Get(context.Background(), "20240601T120000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, store.Record{
		Timestamp:   "20240601T120000",
		InputText:   "hello",
		OutputText:  "Hi there",
		ModelID:     "amazon.titan-text-express-v1",
		Temperature: "0.5",
		TopP:        "0.9",
	}, rec)
}

func TestInvokeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(url.Values)
		wantMsg string
	}{
		{"missing input", func(f url.Values) { f.Del("input_text") }, "input_text is required"},
		{"bad temperature", func(f url.Values) { f.Set("temperature", "warm") }, "temperature must be a number"},
		{"NaN temperature", func(f url.Values) { f.Set("temperature", "NaN") }, "temperature must be a number"},
		{"infinite temperature", func(f url.Values) { f.Set("temperature", "+Inf") }, "temperature must be a number"},
		{"infinite top_p", func(f url.Values) { f.Set("top_p", "-Inf") }, "top_p must be a number"},
		{"bad top_p", func(f url.Values) { f.Set("top_p", "") }, "top_p must be a number"},
		{"unknown model", func(f url.Values) { f.Set("modelId", "meta.llama3-8b-instruct-v1:0") }, "unknown model: meta.llama3-8b-instruct-v1:0"},
		{"missing model", func(f url.Values) { f.Del("modelId") }, "unknown model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &stubRuntime{body: `{"results":[]}`}
			records := newMemStore()
			form := validForm()
			tt.mutate(form)

			w := postForm(Invoke(testFactory(t, rt), records, fixedNow, zap.NewNop()), form)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantMsg)
			assert.Equal(t, 0, rt.calls, "no backend call on invalid input")
			assert.Empty(t, records.order)
		})
	}
}

func TestInvokeOutOfRangeSamplingReachesBackend(t *testing.T) {
	rt := &stubRuntime{body: `{"completion":"ok"}`}
	form := validForm()
	form.Set("modelId", "anthropic.claude-v2:1")
	form.Set("temperature", "7")

	w := postForm(Invoke(testFactory(t, rt), newMemStore(), fixedNow, zap.NewNop()), form)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rt.calls)
	assert.Contains(t, string(rt.last), `"temperature":7`)
}

func TestInvokeAcceptsLongPrompt(t *testing.T) {
	rt := &stubRuntime{body: `{"results":[{"outputText":"ok"}]}`}
	records := newMemStore()
	form := validForm()
	form.Set("input_text", strings.Repeat("a", 20000))

	w := postForm(Invoke(testFactory(t, rt), records, fixedNow, zap.NewNop()), form)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, rt.calls)
	rec, ok, err := records.Get(context.Background(), "20240601T120000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, rec.InputText, 20000)
}

func TestInvokeFailuresNotLoggedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	rt := &stubRuntime{err: errors.New("ThrottlingException")}
	w := postForm(Invoke(testFactory(t, rt), newMemStore(), fixedNow, l), validForm())
	require.Equal(t, http.StatusBadGateway, w.Code)

	records := newMemStore()
	records.err = errors.New("ProvisionedThroughputExceededException")
	rt = &stubRuntime{body: `{"results":[{"outputText":"Hi there"}]}`}
	w = postForm(Invoke(testFactory(t, rt), records, fixedNow, l), validForm())
	require.Equal(t, http.StatusBadGateway, w.Code)

	assert.Zero(t, logs.Len(), "backends log their own failures")
}

func TestInvokeBackendError(t *testing.T) {
	rt := &stubRuntime{err: errors.New("AccessDeniedException")}
	records := newMemStore()

	w := postForm(Invoke(testFactory(t, rt), records, fixedNow, zap.NewNop()), validForm())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1, rt.calls)
	assert.Empty(t, records.order, "nothing persisted on failure")
}

func TestInvokeStoreError(t *testing.T) {
	rt := &stubRuntime{body: `{"results":[{"outputText":"Hi there"}]}`}
	records := newMemStore()
	records.err = errors.New("ProvisionedThroughputExceededException")

	w := postForm(Invoke(testFactory(t, rt), records, fixedNow, zap.NewNop()), validForm())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "Hi there")
}

func TestHistory(t *testing.T) {
	records := newMemStore()
	for _, ts := range []string{"20240601T120001", "20240601T120002", "20240601T120003", "20240601T120004", "20240601T120005", "20240601T120006"} {
		require.NoError(t, records.Put(context.Background(), store.Record{Timestamp: ts, ModelID: "m", OutputText: "out-" + ts}))
	}
	h := History(records, 5, zap.NewNop())

	t.Run("default limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, records.lastLimit)
		assert.Equal(t, 5, strings.Count(w.Body.String(), "out-"))
	})

	t.Run("explicit limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history?limit=2", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 2, strings.Count(w.Body.String(), "out-"))
	})

	t.Run("limit beyond size", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history?limit=50", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 6, strings.Count(w.Body.String(), "out-"))
	})

	for _, bad := range []string{"abc", "0", "-3"} {
		t.Run("invalid limit "+bad, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history?limit="+bad, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestHistoryEmptyAndFailing(t *testing.T) {
	w := httptest.NewRecorder()
	History(newMemStore(), 5, zap.NewNop()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No invocations yet.")

	failing := newMemStore()
	failing.err = errors.New("boom")
	w = httptest.NewRecorder()
	History(failing, 5, zap.NewNop()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRecordsAPI(t *testing.T) {
	records := newMemStore()
	want := store.Record{Timestamp: "20240601T120000", InputText: "hello", OutputText: "Hi there", ModelID: "m", Temperature: "0.5", TopP: "0.9"}
	require.NoError(t, records.Put(context.Background(), want))

	r := chi.NewRouter()
	r.Get("/api/records", Records(records, 5, zap.NewNop()))
	r.Get("/api/records/{key}", Record(records, zap.NewNop()))

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/records?limit=3", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got []store.Record
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, []store.Record{want}, got)
		assert.Equal(t, 3, records.lastLimit)
	})

	t.Run("list invalid limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/records?limit=x", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp errorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, errInvalidLimit.Error(), resp.Error)
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/records/20240601T120000", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var got store.Record
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, want, got)
	})

	t.Run("get missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/records/19990101T000000", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHealth(t *testing.T) {
	reg, err := adapter.NewRegistry(nil)
	require.NoError(t, err)

	t.Run("ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		Health(newMemStore(), reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		var resp healthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "ok", resp.Status)
		assert.True(t, resp.Store.Available)
		assert.Equal(t, 4, resp.Models)
	})

	t.Run("degraded", func(t *testing.T) {
		failing := newMemStore()
		failing.err = errors.New("table not found")

		w := httptest.NewRecorder()
		Health(failing, reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp healthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "degraded", resp.Status)
		assert.False(t, resp.Store.Available)
		assert.Equal(t, "table not found", resp.Store.Reason)
	})
}

func TestModels(t *testing.T) {
	reg, err := adapter.NewRegistry(nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	Models(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var got []adapter.ModelInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	require.Len(t, got, 4)
	assert.Equal(t, "amazon.titan-text-express-v1", got[0].ID)
}
