package gallery

// State is a phase of the scroll-and-collect loop.
type State int

const (
	// Loading: the page is rendered and the first collection is pending.
	StateLoading State = iota
	// Scrolling: the last cycle made progress.
	StateScrolling
	// Stable: one or more consecutive cycles made no progress.
	StateStable
	// Done: a termination condition was met.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateScrolling:
		return "scrolling"
	case StateStable:
		return "stable"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Machine tracks termination of the scroll loop. It stops after threshold
// consecutive cycles without progress or after maxScrolls cycles, whichever
// comes first.
type Machine struct {
	maxScrolls int
	threshold  int

	state   State
	scrolls int
	idle    int
}

func NewMachine(maxScrolls, threshold int) *Machine {
	return &Machine{maxScrolls: maxScrolls, threshold: threshold}
}

func (m *Machine) State() State { return m.state }

// Scrolls is the number of cycles observed so far.
func (m *Machine) Scrolls() int { return m.scrolls }

// Loaded records the initial collection.
func (m *Machine) Loaded() State {
	if m.state != StateLoading {
		return m.state
	}
	if m.maxScrolls <= 0 {
		m.state = StateDone
	} else {
		m.state = StateScrolling
	}
	return m.state
}

// Observe records the outcome of one scroll cycle.
func (m *Machine) Observe(progress bool) State {
	if m.state == StateDone || m.state == StateLoading {
		return m.state
	}
	m.scrolls++
	if progress {
		m.idle = 0
		m.state = StateScrolling
	} else {
		m.idle++
		m.state = StateStable
	}
	if m.idle >= m.threshold || m.scrolls >= m.maxScrolls {
		m.state = StateDone
	}
	return m.state
}

// Stop ends the loop early.
func (m *Machine) Stop() { m.state = StateDone }
