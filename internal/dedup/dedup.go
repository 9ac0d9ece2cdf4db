// Package dedup coalesces concurrent identical requests so that callers
// sharing a key observe one underlying execution and its result.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// call tracks one in-flight execution shared by all callers with equal keys.
type call[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Group deduplicates in-flight operations by key. This is request coalescing,
// not caching: a key is forgotten the moment its operation settles, so a later
// call with the same key starts fresh work.
type Group[T any] struct {
	mu       sync.Mutex
	inFlight map[string]*call[T]
}

// NewGroup creates an empty Group.
func NewGroup[T any]() *Group[T] {
	return &Group[T]{inFlight: make(map[string]*call[T])}
}

// Do runs fn for key, unless an execution for key is already in flight, in
// which case it waits for that execution and returns its result. The in-flight
// registration happens before fn is started, so two callers arriving
// back-to-back can never both invoke fn.
//
// A waiting caller's ctx only abandons the wait; it does not cancel the shared
// work, which other callers may still be counting on.
func (g *Group[T]) Do(ctx context.Context, key string, fn func() (T, error)) (T, error) {
	g.mu.Lock()
	if c, ok := g.inFlight[key]; ok {
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.val, c.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	c := &call[T]{done: make(chan struct{})}
	g.inFlight[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.inFlight, key)
	g.mu.Unlock()
	close(c.done)

	return c.val, c.err
}

// InFlight reports how many distinct keys currently have an execution running.
func (g *Group[T]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}

// Key derives a stable deduplication key from a set of repository paths and an
// options value. Paths are sorted so that permutations of the same set hash
// identically; options are JSON-serialized.
func Key(paths []string, options interface{}) string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	optJSON, err := json.Marshal(options)
	if err != nil {
		optJSON = []byte(fmt.Sprintf("%+v", options))
	}

	h := sha256.New()
	for _, p := range sorted {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	h.Write(optJSON)
	return hex.EncodeToString(h.Sum(nil))
}
