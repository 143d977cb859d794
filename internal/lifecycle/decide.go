package lifecycle

// Transition is the single path a record takes during one sweep.
type Transition int

const (
	// TransitionInvalid: the domain no longer resolves.
	TransitionInvalid Transition = iota
	// TransitionExpired: the monitoring window has elapsed.
	TransitionExpired
	// TransitionDuplicatePending: a fresh duplicate admission was seen this sweep.
	TransitionDuplicatePending
	// TransitionProbe is the default path.
	TransitionProbe
)

func (t Transition) String() string {
	switch t {
	case TransitionInvalid:
		return "invalid"
	case TransitionExpired:
		return "expired"
	case TransitionDuplicatePending:
		return "duplicate_pending"
	case TransitionProbe:
		return "probe"
	}
	return "unknown"
}

// Facts is what the engine knows about a record before acting on it.
type Facts struct {
	Resolvable       bool
	Expired          bool
	DuplicatePending bool
}

// Decide applies the transitions in priority order; the first match wins.
func Decide(f Facts) Transition {
	switch {
	case !f.Resolvable:
		return TransitionInvalid
	case f.Expired:
		return TransitionExpired
	case f.DuplicatePending:
		return TransitionDuplicatePending
	default:
		return TransitionProbe
	}
}
