package marker

// State is the processing state of a once-only marker.
type State int

const (
	Unprocessed State = iota
	Processed
)

func (s State) String() string {
	if s == Processed {
		return "processed"
	}
	return "unprocessed"
}

// Tracker records which once-only markers have been acted on during one
// generation call. It is not safe for concurrent use; each call owns one.
type Tracker struct {
	states map[Kind]State
}

// NewTracker returns a tracker with every kind unprocessed.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[Kind]State)}
}

// State returns the state of kind.
func (t *Tracker) State(kind Kind) State {
	return t.states[kind]
}

// Claim moves kind to Processed and reports whether this call did so. Only the
// first claim for a kind succeeds.
func (t *Tracker) Claim(kind Kind) bool {
	if t.states[kind] == Processed {
		return false
	}
	t.states[kind] = Processed
	return true
}
