package session

import (
	"sync"
	"testing"
)

func TestStateIncrementConcurrent(t *testing.T) {
	st := NewState("127.0.0.1", 12345)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Increment()
		}()
	}
	wg.Wait()

	snap := st.Snapshot()
	if snap.Connected != 100 {
		t.Errorf("Connected = %d, want 100", snap.Connected)
	}
	if snap.Addr() != "127.0.0.1:12345" {
		t.Errorf("Addr() = %q", snap.Addr())
	}
}

func TestStateMonotonic(t *testing.T) {
	st := NewState("", 0)
	prev := 0
	for i := 0; i < 10; i++ {
		got := st.Increment()
		if got != prev+1 {
			t.Fatalf("Increment() = %d, want %d", got, prev+1)
		}
		prev = got
	}
}
