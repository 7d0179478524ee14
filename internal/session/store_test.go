package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestNewStore(t *testing.T) {
	s := NewStore()
	if got := len(s.GetAll()); got != 0 {
		t.Errorf("new store has %d sessions, want 0", got)
	}
	if got := s.ActiveCount(); got != 0 {
		t.Errorf("new store ActiveCount() = %d, want 0", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := NewStore()
	info, ok := s.Get("nonexistent")
	if ok || info != nil {
		t.Error("Get for missing key should return nil, false")
	}
}

func TestUpdateStoresCopy(t *testing.T) {
	s := NewStore()
	info := &Info{ID: "a", Remote: "127.0.0.1:1", LastVerb: "TIME"}
	s.Update(EventOpen, info)

	info.LastVerb = "mutated"
	got, _ := s.Get("a")
	if got.LastVerb != "TIME" {
		t.Error("Update did not copy input; external mutation leaked into store")
	}

	got.LastVerb = "mutated"
	again, _ := s.Get("a")
	if again.LastVerb != "TIME" {
		t.Error("Get did not return a copy; mutation leaked into store")
	}
}

func TestCloneCopiesClosedAt(t *testing.T) {
	now := time.Now()
	info := &Info{ID: "a", ClosedAt: &now}
	c := info.Clone()
	*c.ClosedAt = now.Add(time.Hour)
	if !info.ClosedAt.Equal(now) {
		t.Error("Clone shared ClosedAt pointer")
	}
}

func TestRemoveEmitsClose(t *testing.T) {
	s := NewStore()
	var got []Event
	s.Observe(func(ev Event) { got = append(got, ev) })

	s.Update(EventOpen, &Info{ID: "a"})
	s.Update(EventOpen, &Info{ID: "b"})
	s.Remove(&Info{ID: "a", Phase: Closed})

	if s.ActiveCount() != 1 {
		t.Errorf("ActiveCount() = %d, want 1", s.ActiveCount())
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	last := got[2]
	if last.Type != EventClose || last.Info.ID != "a" || last.ActiveCount != 1 {
		t.Errorf("close event = %+v", last)
	}
	if !last.Info.IsTerminal() {
		t.Error("closed session should be terminal")
	}
}

func TestStoreConcurrent(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			info := &Info{ID: string(rune('A' + i))}
			s.Update(EventOpen, info)
			s.GetAll()
			s.Remove(info)
		}(i)
	}
	wg.Wait()
	if s.ActiveCount() != 0 {
		t.Errorf("ActiveCount() = %d, want 0", s.ActiveCount())
	}
}

func TestPhaseJSON(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Open, `"open"`},
		{Closing, `"closing"`},
		{Closed, `"closed"`},
	}
	for _, tt := range tests {
		data, err := json.Marshal(tt.phase)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.phase, data, tt.want)
		}
		var back Phase
		if err := json.Unmarshal(data, &back); err != nil || back != tt.phase {
			t.Errorf("Unmarshal(%s) = %v, %v", data, back, err)
		}
	}
}
