package workset

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/larchio/larch"
)

func TestDoRunsOnceConcurrently(t *testing.T) {
	w := New()
	name := larch.LayerName{1, 2, 3, 4, 5}

	var calls int32
	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i] = w.Do(name, func() error {
				atomic.AddInt32(&calls, 1)
				time.Sleep(10 * time.Millisecond)
				return nil
			})
		}()
	}
	close(start)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("fn ran %d times, want 1", got)
	}
	for i, err := range results {
		if err != nil {
			t.Errorf("result[%d]: unexpected error: %v", i, err)
		}
	}
	if w.InFlight(name) {
		t.Error("InFlight: still true after Do returned")
	}
}

func TestDoPropagatesErrorToWaiters(t *testing.T) {
	w := New()
	name := larch.LayerName{9, 9, 9, 9, 9}
	wantErr := errors.New("promotion failed")

	release := make(chan struct{})
	var wg sync.WaitGroup
	var waiterErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		// Give the first Do a chance to admit before this one starts.
		time.Sleep(5 * time.Millisecond)
		waiterErr = w.Do(name, func() error {
			t.Error("waiter's fn should not run; it should join the in-flight attempt")
			return nil
		})
	}()

	// Hold the first attempt open long enough for the waiter to join it.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	err := w.Do(name, func() error {
		<-release
		return wantErr
	})
	_ = err // only the waiter's result is checked here

	wg.Wait()
	if !errors.Is(waiterErr, wantErr) {
		t.Errorf("waiter error: got %v, want %v", waiterErr, wantErr)
	}
}

func TestDoReleasesOnPanic(t *testing.T) {
	w := New()
	name := larch.LayerName{7, 7, 7, 7, 7}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected the panic to propagate")
			}
		}()
		w.Do(name, func() error { panic("promotion blew up") })
	}()

	if w.InFlight(name) {
		t.Fatal("InFlight: entry leaked after panic")
	}
	var reran bool
	if err := w.Do(name, func() error { reran = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !reran {
		t.Error("expected a fresh attempt to be admitted after the panic")
	}
}

func TestDoSeparateNamesIndependent(t *testing.T) {
	w := New()
	a := larch.LayerName{1, 0, 0, 0, 0}
	b := larch.LayerName{2, 0, 0, 0, 0}

	var aRan, bRan bool
	if err := w.Do(a, func() error { aRan = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if err := w.Do(b, func() error { bRan = true; return nil }); err != nil {
		t.Fatal(err)
	}
	if !aRan || !bRan {
		t.Error("expected both distinct names to run their own fn")
	}
}
