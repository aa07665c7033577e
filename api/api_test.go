package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/docquery/entity"
	"github.com/thisisjab/docquery/matcher"
	"github.com/thisisjab/docquery/search"
	"github.com/thisisjab/docquery/storage"
)

type recorder struct {
	mu       sync.Mutex
	verdicts []entity.Verdict
}

func (r *recorder) Add(ctx context.Context, verdicts ...entity.Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts = append(r.verdicts, verdicts...)
}

type history struct {
	filter   storage.VerdictFilter
	verdicts []entity.Verdict
}

func (h *history) ListVerdicts(ctx context.Context, filter storage.VerdictFilter) ([]entity.Verdict, error) {
	h.filter = filter
	return h.verdicts, nil
}

type response struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata"`
}

func newTestServer(t *testing.T, services Services) http.Handler {
	t.Helper()

	if services.Matcher == nil {
		services.Matcher = matcher.NewSubstring()
	}

	s, err := NewServer(Config{Addr: "localhost:0", MaxBodySize: 1 * datasize.KB}, slog.New(slog.DiscardHandler), services)
	require.NoError(t, err)

	return s.routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	}

	return rec.Code, res
}

func TestNewServerValidation(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	_, err := NewServer(Config{}, logger, Services{Matcher: matcher.NewSubstring()})
	assert.Error(t, err)

	_, err = NewServer(Config{Addr: "localhost:0", MaxBodySize: datasize.KB}, logger, Services{})
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	h := newTestServer(t, Services{})

	status, res := do(t, h, http.MethodGet, "/api/healthcheck", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, res.Success)
	assert.Equal(t, false, res.Data["recording_verdicts"])
}

func TestEvaluate(t *testing.T) {
	rec := &recorder{}
	h := newTestServer(t, Services{Recorder: rec})

	status, res := do(t, h, http.MethodPost, "/api/evaluate",
		`{"query": "A * (B + C)", "document": "A and C", "source": "notes.txt"}`)
	require.Equal(t, http.StatusOK, status)

	assert.True(t, res.Success)
	assert.Equal(t, "This document fulfills the query: true", res.Message)
	assert.Equal(t, true, res.Data["verdict"])
	assert.EqualValues(t, 3, res.Data["lookups"])
	assert.Len(t, res.Data["steps"], 3)

	require.Len(t, rec.verdicts, 1)
	v := rec.verdicts[0]
	assert.Equal(t, "A * (B + C)", v.Query)
	assert.Equal(t, "notes.txt", v.Source)
	assert.True(t, v.Result)
	assert.Equal(t, 3, v.Lookups)
	assert.Equal(t, v.ID.String(), res.Data["id"])
}

func TestEvaluateOverridesOptions(t *testing.T) {
	h := newTestServer(t, Services{Search: search.Options{IgnoreCase: true}})

	_, res := do(t, h, http.MethodPost, "/api/evaluate", `{"query": "tape", "document": "TAPE"}`)
	assert.Equal(t, true, res.Data["verdict"])

	_, res = do(t, h, http.MethodPost, "/api/evaluate", `{"query": "tape", "document": "TAPE", "ignore_case": false}`)
	assert.Equal(t, false, res.Data["verdict"])
}

func TestEvaluateBadInput(t *testing.T) {
	h := newTestServer(t, Services{})

	tests := map[string]struct {
		body   string
		status int
	}{
		"empty body":     {body: "", status: http.StatusBadRequest},
		"malformed json": {body: `{"query": `, status: http.StatusBadRequest},
		"unknown field":  {body: `{"query": "A", "color": "red"}`, status: http.StatusUnprocessableEntity},
		"wrong type":     {body: `{"query": 12}`, status: http.StatusUnprocessableEntity},
		"missing query":  {body: `{"document": "A"}`, status: http.StatusUnprocessableEntity},
		"no terms":       {body: `{"query": "+ *", "document": "A"}`, status: http.StatusBadRequest},
		"two values":     {body: `{"query": "A"} {}`, status: http.StatusBadRequest},
		"too large": {
			body:   `{"query": "A", "document": "` + strings.Repeat("x", 2048) + `"}`,
			status: http.StatusBadRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			status, res := do(t, h, http.MethodPost, "/api/evaluate", tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, res.Success)
		})
	}
}

func TestEvaluateBadInputMessages(t *testing.T) {
	h := newTestServer(t, Services{})

	_, res := do(t, h, http.MethodPost, "/api/evaluate", `{"query": "A", "color": "red"}`)
	assert.Equal(t, map[string]any{
		"color": []any{"Key is unknown. Expected one of: query, document, source, ignore_case, strict."},
	}, res.Metadata["fields"])

	_, res = do(t, h, http.MethodPost, "/api/evaluate", `{"query": "A", "strict": "yes"}`)
	assert.Equal(t, map[string]any{"strict": []any{"Expected a boolean."}}, res.Metadata["fields"])

	_, res = do(t, h, http.MethodPost, "/api/parse", "")
	assert.Equal(t, "Request cannot be empty. Expected a JSON object with keys: query, strict.", res.Message)
}

func TestEvaluateStrictReportsEveryIssue(t *testing.T) {
	h := newTestServer(t, Services{})

	status, res := do(t, h, http.MethodPost, "/api/evaluate", `{"query": "A * (B + ", "document": "A", "strict": true}`)
	require.Equal(t, http.StatusBadRequest, status)

	issues, ok := res.Metadata["issues"].([]any)
	require.True(t, ok, "metadata: %v", res.Metadata)
	assert.Len(t, issues, 2)
}

func TestParse(t *testing.T) {
	h := newTestServer(t, Services{})

	status, res := do(t, h, http.MethodPost, "/api/parse", `{"query": "A * (B + C"}`)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "(A * (B + C))", res.Data["tree"])
	assert.Equal(t, []any{"A", "B", "C"}, res.Data["terms"])
	assert.EqualValues(t, 5, res.Data["size"])
	assert.Len(t, res.Data["issues"], 1)
}

func TestParseStrict(t *testing.T) {
	h := newTestServer(t, Services{})

	status, res := do(t, h, http.MethodPost, "/api/parse", `{"query": "A B )", "strict": true}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]any{"position": float64(4), "token": ")"}, res.Metadata["context"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, Services{})

	do(t, h, http.MethodPost, "/api/evaluate", `{"query": "A", "document": "A"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "docquery_engine_evaluations_total")
	assert.Contains(t, rec.Body.String(), `docquery_api_requests_total{path="POST /api/evaluate",status="200"}`)
}

func TestRecoverPanic(t *testing.T) {
	s, err := NewServer(Config{Addr: "localhost:0", MaxBodySize: datasize.KB}, slog.New(slog.DiscardHandler), Services{Matcher: matcher.NewSubstring()})
	require.NoError(t, err)

	h := s.recoverPanicMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	status, res := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, res.Success)
}

func TestListVerdicts(t *testing.T) {
	hist := &history{verdicts: []entity.Verdict{{Query: "A + B", Result: true, Lookups: 1}}}
	h := newTestServer(t, Services{History: hist})

	status, res := do(t, h, http.MethodGet, "/api/verdicts?start=2026-01-01T00:00:00Z&result=false&source=notes.txt&sort=-lookups,source&limit=5", "")
	require.Equal(t, http.StatusOK, status)

	assert.Len(t, res.Data["verdicts"], 1)
	assert.EqualValues(t, 1, res.Metadata["count"])

	require.NotNil(t, hist.filter.Result)
	assert.False(t, *hist.filter.Result)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), hist.filter.Start.UTC())
	assert.Equal(t, "notes.txt", hist.filter.Source)
	assert.Equal(t, 5, hist.filter.Limit)
	assert.Equal(t, []storage.SortField{{Name: "lookups", IsDescending: true}, {Name: "source"}}, hist.filter.Sort)
}

func TestListVerdictsBadFilter(t *testing.T) {
	h := newTestServer(t, Services{History: &history{}})

	tests := map[string]struct {
		query string
		field string
	}{
		"missing start": {query: "", field: "start"},
		"bad time":      {query: "?start=yesterday", field: "start"},
		"bad result":    {query: "?start=2026-01-01T00:00:00Z&result=maybe", field: "result"},
		"bad sort":      {query: "?start=2026-01-01T00:00:00Z&sort=query", field: "sort"},
		"bad limit":     {query: "?start=2026-01-01T00:00:00Z&limit=5000", field: "limit"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			status, res := do(t, h, http.MethodGet, "/api/verdicts"+tt.query, "")
			assert.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Contains(t, res.Metadata["fields"], tt.field)
		})
	}
}

func TestListVerdictsDisabled(t *testing.T) {
	h := newTestServer(t, Services{})

	status, res := do(t, h, http.MethodGet, "/api/verdicts?start=2026-01-01T00:00:00Z", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Verdict history is not enabled.", res.Message)
}

// blockingMatcher holds every lookup until release is closed.
type blockingMatcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingMatcher() *blockingMatcher {
	return &blockingMatcher{entered: make(chan struct{}), release: make(chan struct{})}
}

func (m *blockingMatcher) Match(term, document string, ignoreCase bool) (bool, error) {
	m.once.Do(func() { close(m.entered) })
	<-m.release
	return true, nil
}

// startInFlight serves on a local listener and sends one evaluate request
// that stays in the matcher until m.release is closed.
func startInFlight(t *testing.T, cfg Config, m *blockingMatcher, rec *recorder) (cancel context.CancelFunc, served, status chan error) {
	t.Helper()

	s, err := NewServer(cfg, slog.New(slog.DiscardHandler), Services{Matcher: m, Recorder: rec})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	served = make(chan error, 1)
	go func() { served <- s.serveListener(ctx, ln) }()

	status = make(chan error, 1)
	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/api/evaluate", "application/json",
			strings.NewReader(`{"query": "A", "document": "A"}`))
		if err == nil {
			resp.Body.Close()
		}
		status <- err
	}()

	select {
	case <-m.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the matcher")
	}

	return cancel, served, status
}

func TestServeWaitsForInFlightRequests(t *testing.T) {
	m := newBlockingMatcher()
	rec := &recorder{}
	cancel, served, status := startInFlight(t, Config{Addr: "127.0.0.1:0", MaxBodySize: datasize.KB}, m, rec)

	cancel()

	select {
	case err := <-served:
		t.Fatalf("server stopped while a request was running: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(m.release)
	require.NoError(t, <-served)

	// Callers may stop the verdict buffer as soon as Serve returns.
	rec.mu.Lock()
	assert.Len(t, rec.verdicts, 1)
	rec.mu.Unlock()

	assert.NoError(t, <-status)
}

func TestServeShutdownTimeout(t *testing.T) {
	m := newBlockingMatcher()
	cancel, served, status := startInFlight(t, Config{Addr: "127.0.0.1:0", MaxBodySize: datasize.KB, ShutdownTimeout: 50 * time.Millisecond}, m, &recorder{})

	cancel()

	select {
	case err := <-served:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not time out")
	}

	close(m.release)
	<-status
}
