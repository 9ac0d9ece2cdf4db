package dedup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrentCallersShareOneExecution(t *testing.T) {
	g := NewGroup[string]()

	var calls int32
	gate := make(chan struct{})
	fn := func() (string, error) {
		atomic.AddInt32(&calls, 1)
		<-gate
		return "result", nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Do(context.Background(), "same-key", fn)
		}(i)
	}

	// Wait until the single execution is registered, then release it.
	deadline := time.After(2 * time.Second)
	for g.InFlight() != 1 {
		select {
		case <-deadline:
			t.Fatal("execution never registered")
		case <-time.After(time.Millisecond):
		}
	}
	close(gate)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("fn invoked %d times, want 1", n)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v", i, errs[i])
		}
		if results[i] != "result" {
			t.Errorf("caller %d result = %q", i, results[i])
		}
	}
}

func TestSharedErrorPropagation(t *testing.T) {
	g := NewGroup[int]()

	wantErr := fmt.Errorf("shared failure")
	gate := make(chan struct{})
	fn := func() (int, error) {
		<-gate
		return 0, wantErr
	}

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Do(context.Background(), "k", fn)
		}(i)
	}

	deadline := time.After(2 * time.Second)
	for g.InFlight() != 1 {
		select {
		case <-deadline:
			t.Fatal("execution never registered")
		case <-time.After(time.Millisecond):
		}
	}
	close(gate)
	wg.Wait()

	for i, err := range errs {
		if err != wantErr {
			t.Errorf("caller %d error = %v, want the shared error", i, err)
		}
	}
}

func TestKeyForgottenAfterSettlement(t *testing.T) {
	g := NewGroup[int]()

	var calls int32
	fn := func() (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	first, err := g.Do(context.Background(), "k", fn)
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Do(context.Background(), "k", fn)
	if err != nil {
		t.Fatal(err)
	}

	if first != 1 || second != 2 {
		t.Errorf("results = %d, %d; sequential calls must run fresh work", first, second)
	}
}

func TestDistinctKeysRunIndependently(t *testing.T) {
	g := NewGroup[string]()

	var wg sync.WaitGroup
	var calls int32
	gate := make(chan struct{})

	for _, key := range []string{"a", "b"} {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, _ = g.Do(context.Background(), key, func() (string, error) {
				atomic.AddInt32(&calls, 1)
				<-gate
				return key, nil
			})
		}(key)
	}

	deadline := time.After(2 * time.Second)
	for g.InFlight() != 2 {
		select {
		case <-deadline:
			t.Fatalf("inFlight = %d, want 2", g.InFlight())
		case <-time.After(time.Millisecond):
		}
	}
	close(gate)
	wg.Wait()

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestWaiterContextCancellation(t *testing.T) {
	g := NewGroup[string]()

	gate := make(chan struct{})
	go func() {
		_, _ = g.Do(context.Background(), "k", func() (string, error) {
			<-gate
			return "late", nil
		})
	}()

	deadline := time.After(2 * time.Second)
	for g.InFlight() != 1 {
		select {
		case <-deadline:
			t.Fatal("execution never registered")
		case <-time.After(time.Millisecond):
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.Do(ctx, "k", func() (string, error) {
		t.Error("second caller must not invoke fn")
		return "", nil
	})
	if err != context.DeadlineExceeded {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	close(gate)
}

func TestKeyDerivation(t *testing.T) {
	type opts struct {
		Mode string `json:"mode"`
	}

	t.Run("path order does not matter", func(t *testing.T) {
		a := Key([]string{"/r1", "/r2"}, opts{Mode: "quick"})
		b := Key([]string{"/r2", "/r1"}, opts{Mode: "quick"})
		if a != b {
			t.Error("permuted path sets should share a key")
		}
	})

	t.Run("options matter", func(t *testing.T) {
		a := Key([]string{"/r1"}, opts{Mode: "quick"})
		b := Key([]string{"/r1"}, opts{Mode: "full"})
		if a == b {
			t.Error("different options should produce different keys")
		}
	})

	t.Run("paths matter", func(t *testing.T) {
		a := Key([]string{"/r1"}, opts{Mode: "quick"})
		b := Key([]string{"/r2"}, opts{Mode: "quick"})
		if a == b {
			t.Error("different paths should produce different keys")
		}
	})
}
