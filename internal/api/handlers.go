package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"repolens/internal/analysis"
	"repolens/internal/batch"
	"repolens/internal/version"
)

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}
	writeJSON(w, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.Info(),
	}, http.StatusOK)
}

// AnalyzeRequest is the POST /api/analyze body.
type AnalyzeRequest struct {
	Path    string           `json:"path"`
	Options analysis.Options `json:"options"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.Path == "" {
		badRequest(w, "path is required")
		return
	}
	if req.Options.Mode == "" {
		req.Options.Mode = analysis.ModeQuick
	}

	result, err := s.orchestrator.AnalyzeOne(r.Context(), req.Path, req.Options)
	if err != nil {
		writeLensError(w, err)
		return
	}

	if err := s.index.Add(result); err != nil {
		s.logger.Warn("Failed to index analysis", map[string]interface{}{
			"path":  req.Path,
			"error": err.Error(),
		})
	}
	writeJSON(w, result, http.StatusOK)
}

// BatchRequest is the POST /api/batch body.
type BatchRequest struct {
	Paths       []string         `json:"paths"`
	Options     analysis.Options `json:"options"`
	Concurrency int              `json:"concurrency"`
	Sequential  bool             `json:"sequential"`
}

// streamLine is one NDJSON line of the batch response: a progress event or
// the final result.
type streamLine struct {
	Type     string          `json:"type"`
	Progress *batch.Progress `json:"progress,omitempty"`
	Result   *batch.Result   `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if len(req.Paths) == 0 {
		badRequest(w, "paths is required")
		return
	}
	if req.Options.Mode == "" {
		req.Options.Mode = analysis.ModeQuick
	}
	if req.Concurrency <= 0 {
		req.Concurrency = s.cfg.DefaultConcurrency
	}
	if req.Concurrency > s.cfg.MaxConcurrency {
		req.Concurrency = s.cfg.MaxConcurrency
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	// Progress callbacks arrive from queue worker goroutines; writes to the
	// response must be serialized. On early return (cancellation) in-flight
	// workers can still settle and emit progress, so forwarding stops once
	// the batch call is over: the ResponseWriter must not be touched after
	// this handler returns.
	var mu sync.Mutex
	finished := false
	writeLine := func(line streamLine) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(line); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	onProgress := func(p batch.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		if err := enc.Encode(streamLine{Type: "progress", Progress: &p}); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	var result *batch.Result
	var err error
	if req.Sequential {
		result, err = s.orchestrator.AnalyzeSequential(r.Context(), req.Paths, req.Options, onProgress)
	} else {
		result, err = s.orchestrator.AnalyzeBatch(r.Context(), req.Paths, req.Options, req.Concurrency, onProgress)
	}
	mu.Lock()
	finished = true
	mu.Unlock()
	if err != nil {
		// Headers are already sent, so the error goes out as a stream line.
		writeLine(streamLine{Type: "error", Error: err.Error()})
		s.logger.Error("Batch request failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	for i := range result.Repositories {
		if err := s.index.Add(&result.Repositories[i]); err != nil {
			s.logger.Warn("Failed to index analysis", map[string]interface{}{
				"path":  result.Repositories[i].Path,
				"error": err.Error(),
			})
		}
	}

	writeLine(streamLine{Type: "result", Result: result})
}

func (s *Server) handleRepositories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	repos, err := s.index.List()
	if err != nil {
		writeLensError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"repositories": repos,
		"count":        len(repos),
	}, http.StatusOK)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		badRequest(w, "query parameter q is required")
		return
	}

	results, err := s.index.Search(query)
	if err != nil {
		writeLensError(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"query":   query,
		"results": results,
		"count":   len(results),
	}, http.StatusOK)
}
