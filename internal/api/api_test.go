package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"repolens/internal/analysis"
	"repolens/internal/batch"
	"repolens/internal/cache"
	"repolens/internal/config"
	"repolens/internal/errors"
	"repolens/internal/index"
	"repolens/internal/logging"
	"repolens/internal/storage"
)

type stubAnalyzer struct {
	results map[string]*analysis.RepositoryAnalysis
	fail    map[string]error

	block     chan struct{} // when set, Analyze blocks until closed
	started   chan struct{} // when set, closed once the first Analyze begins
	startOnce sync.Once
}

func (s *stubAnalyzer) Analyze(ctx context.Context, path string, opts analysis.Options) (*analysis.RepositoryAnalysis, error) {
	if s.started != nil {
		s.startOnce.Do(func() { close(s.started) })
	}
	if s.block != nil {
		<-s.block
	}
	if err, ok := s.fail[path]; ok {
		return nil, err
	}
	if a, ok := s.results[path]; ok {
		return a, nil
	}
	return &analysis.RepositoryAnalysis{ID: "id-" + path, Path: path, Name: strings.TrimPrefix(path, "/")}, nil
}

func newTestServer(t *testing.T, a analysis.Analyzer) *Server {
	t.Helper()

	logger := logging.NewNop()
	db, err := storage.OpenMemory(logger)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.DefaultConfig()
	c, err := cache.New(db, logger, cfg.Cache)
	if err != nil {
		t.Fatal(err)
	}

	orch := batch.NewOrchestrator(a, c, logger, cfg.Insights)
	ix := index.New(db, logger, cfg.Insights)
	return NewServer(":0", orch, ix, cfg.Batch, logger)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{})

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("health status = %q", resp.Status)
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	sa := &stubAnalyzer{
		results: map[string]*analysis.RepositoryAnalysis{
			"/repos/web": {ID: "id-web", Path: "/repos/web", Name: "web", Languages: []string{"TypeScript"}},
		},
	}
	s := newTestServer(t, sa)

	rec := doJSON(t, s, http.MethodPost, "/api/analyze", AnalyzeRequest{Path: "/repos/web"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got analysis.RepositoryAnalysis
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "web" {
		t.Errorf("analysis = %+v", got)
	}

	// The analysis lands in the index.
	list := doJSON(t, s, http.MethodGet, "/api/repositories", nil)
	if !strings.Contains(list.Body.String(), `"web"`) {
		t.Errorf("repository not indexed: %s", list.Body.String())
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	sa := &stubAnalyzer{
		fail: map[string]error{
			"/missing": errors.New(errors.PathNotFound, "no such path"),
			"/broken":  errors.New(errors.AnalysisFailed, "walk aborted"),
		},
	}
	s := newTestServer(t, sa)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"missing path maps to 404", AnalyzeRequest{Path: "/missing"}, http.StatusNotFound, "PATH_NOT_FOUND"},
		{"analysis failure maps to 422", AnalyzeRequest{Path: "/broken"}, http.StatusUnprocessableEntity, "ANALYSIS_FAILED"},
		{"empty path maps to 400", AnalyzeRequest{}, http.StatusBadRequest, "INVALID_ARGUMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/analyze", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestBatchEndpointStreamsNDJSON(t *testing.T) {
	sa := &stubAnalyzer{
		results: map[string]*analysis.RepositoryAnalysis{
			"/a": {ID: "1", Path: "/a", Name: "a", Languages: []string{"Go"}},
			"/b": {ID: "2", Path: "/b", Name: "b", Languages: []string{"Go"}},
		},
		fail: map[string]error{
			"/bad": errors.New(errors.AnalysisFailed, "broken repository"),
		},
	}
	s := newTestServer(t, sa)

	rec := doJSON(t, s, http.MethodPost, "/api/batch", BatchRequest{
		Paths:       []string{"/a", "/b", "/bad"},
		Concurrency: 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}

	var progress int
	var final *batch.Result
	scanner := bufio.NewScanner(rec.Body)
	for scanner.Scan() {
		var line struct {
			Type   string        `json:"type"`
			Result *batch.Result `json:"result"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("bad NDJSON line %q: %v", scanner.Text(), err)
		}
		switch line.Type {
		case "progress":
			if final != nil {
				t.Error("progress line after final result")
			}
			progress++
		case "result":
			final = line.Result
		default:
			t.Errorf("unexpected line type %q", line.Type)
		}
	}

	if progress == 0 {
		t.Error("expected progress lines before the result")
	}
	if final == nil {
		t.Fatal("no final result line")
	}
	want := batch.Status{Total: 3, Completed: 2, Failed: 1, Progress: 100}
	if final.Status != want {
		t.Errorf("final status = %+v, want %+v", final.Status, want)
	}
}

// settledWriter records body writes and flags any that arrive after the
// handler has returned.
type settledWriter struct {
	mu          sync.Mutex
	buf         bytes.Buffer
	header      http.Header
	handlerDone bool
	lateWrite   bool
}

func (w *settledWriter) Header() http.Header { return w.header }
func (w *settledWriter) WriteHeader(int)     {}

func (w *settledWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.handlerDone {
		w.lateWrite = true
	}
	return w.buf.Write(p)
}

func (w *settledWriter) markDone() {
	w.mu.Lock()
	w.handlerDone = true
	w.mu.Unlock()
}

func TestBatchStreamStopsAfterCancellation(t *testing.T) {
	sa := &stubAnalyzer{
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s := newTestServer(t, sa)

	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(BatchRequest{Paths: []string{"/slow"}, Concurrency: 1}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/api/batch", &body).WithContext(ctx)
	w := &settledWriter{header: http.Header{}}

	done := make(chan struct{})
	go func() {
		s.ServeHTTP(w, req)
		close(done)
	}()

	// Cancel once the analysis is in flight; the handler returns while the
	// worker is still blocked.
	<-sa.started
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after cancellation")
	}
	w.markDone()

	// Release the worker. Its settlement fires a late progress event which
	// must not reach the response.
	close(sa.block)
	time.Sleep(100 * time.Millisecond)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lateWrite {
		t.Fatal("response written after the handler returned")
	}
	lines := strings.Split(strings.TrimSpace(w.buf.String()), "\n")
	var last struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("bad final line %q: %v", lines[len(lines)-1], err)
	}
	if last.Type != "error" {
		t.Errorf("final line type = %q, want error", last.Type)
	}
}

func TestBatchValidation(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{})

	rec := doJSON(t, s, http.MethodPost, "/api/batch", BatchRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty paths: status = %d, want 400", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	sa := &stubAnalyzer{
		results: map[string]*analysis.RepositoryAnalysis{
			"/py": {ID: "1", Path: "/py", Name: "py", Languages: []string{"Python"}},
			"/go": {ID: "2", Path: "/go", Name: "golib", Languages: []string{"Go"}},
		},
	}
	s := newTestServer(t, sa)
	doJSON(t, s, http.MethodPost, "/api/analyze", AnalyzeRequest{Path: "/py"})
	doJSON(t, s, http.MethodPost, "/api/analyze", AnalyzeRequest{Path: "/go"})

	rec := doJSON(t, s, http.MethodGet, "/api/search?q=python", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Count   int                           `json:"count"`
		Results []analysis.RepositoryAnalysis `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Results[0].Name != "py" {
		t.Errorf("search response = %+v", resp)
	}

	missing := doJSON(t, s, http.MethodGet, "/api/search", nil)
	if missing.Code != http.StatusBadRequest {
		t.Errorf("missing q: status = %d, want 400", missing.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &stubAnalyzer{})

	for _, tt := range []struct{ method, path string }{
		{http.MethodPost, "/health"},
		{http.MethodGet, "/api/analyze"},
		{http.MethodGet, "/api/batch"},
		{http.MethodPost, "/api/repositories"},
	} {
		rec := doJSON(t, s, tt.method, tt.path, nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tt.method, tt.path, rec.Code)
		}
	}
}
