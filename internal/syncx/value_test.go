package syncx

import (
	"sync"
	"testing"
)

func TestValueLoadStore(t *testing.T) {
	v := NewValue("recording")

	if got := v.Load(); got != "recording" {
		t.Errorf("Load() = %q, want %q", got, "recording")
	}
	if v.Version() != 0 {
		t.Errorf("Version() = %d, want 0", v.Version())
	}

	if ver := v.Store("playing"); ver != 1 {
		t.Errorf("Store() version = %d, want 1", ver)
	}
	if got := v.Load(); got != "playing" {
		t.Errorf("Load() after Store = %q, want %q", got, "playing")
	}
}

func TestValueUpdate(t *testing.T) {
	type status struct {
		state     string
		fragments int
	}
	v := NewValue(status{state: "recording"})

	got := v.Update(func(s status) status {
		s.fragments = 7
		return s
	})

	if got.fragments != 7 || got.state != "recording" {
		t.Errorf("Update() = %+v, want {recording 7}", got)
	}
	if v.Load().fragments != 7 {
		t.Error("Update should be visible to Load")
	}
}

func TestValueConcurrentSafety(t *testing.T) {
	v := NewValue(0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			v.Update(func(n int) int { return n + 1 })
		}()
		go func() {
			defer wg.Done()
			_ = v.Load()
		}()
	}
	wg.Wait()

	if got := v.Load(); got != 100 {
		t.Errorf("Load() = %d, want 100", got)
	}
	if v.Version() != 100 {
		t.Errorf("Version() = %d, want 100", v.Version())
	}
}
