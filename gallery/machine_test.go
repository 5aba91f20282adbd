package gallery

import "testing"

func TestMachine_StopsAfterThreshold(t *testing.T) {
	m := NewMachine(50, 3)
	if m.State() != StateLoading {
		t.Fatalf("initial state = %s, want loading", m.State())
	}
	m.Loaded()

	steps := []struct {
		progress bool
		want     State
	}{
		{true, StateScrolling},
		{false, StateStable},
		{false, StateStable},
		{true, StateScrolling},
		{false, StateStable},
		{false, StateStable},
		{false, StateDone},
	}
	for i, s := range steps {
		if got := m.Observe(s.progress); got != s.want {
			t.Fatalf("step %d: state = %s, want %s", i, got, s.want)
		}
	}
	if m.Scrolls() != len(steps) {
		t.Errorf("Scrolls = %d, want %d", m.Scrolls(), len(steps))
	}
}

func TestMachine_StopsAtMaxScrolls(t *testing.T) {
	m := NewMachine(4, 10)
	m.Loaded()
	for i := 0; i < 3; i++ {
		if got := m.Observe(true); got != StateScrolling {
			t.Fatalf("scroll %d: state = %s, want scrolling", i+1, got)
		}
	}
	if got := m.Observe(true); got != StateDone {
		t.Errorf("scroll 4: state = %s, want done", got)
	}
	if got := m.Observe(true); got != StateDone || m.Scrolls() != 4 {
		t.Errorf("after done: state = %s scrolls = %d, want done/4", got, m.Scrolls())
	}
}

func TestMachine_ZeroBudget(t *testing.T) {
	m := NewMachine(0, 3)
	if got := m.Loaded(); got != StateDone {
		t.Errorf("Loaded with no scroll budget = %s, want done", got)
	}
}

func TestMachine_ObserveBeforeLoaded(t *testing.T) {
	m := NewMachine(5, 1)
	if got := m.Observe(false); got != StateLoading {
		t.Errorf("Observe before Loaded = %s, want loading", got)
	}
	if m.Scrolls() != 0 {
		t.Errorf("Scrolls = %d, want 0", m.Scrolls())
	}
}

func TestMachine_Stop(t *testing.T) {
	m := NewMachine(5, 3)
	m.Loaded()
	m.Stop()
	if m.State() != StateDone {
		t.Errorf("state = %s, want done", m.State())
	}
}
