package screen

// Phase of an async action.
type Phase int

const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Action is the state machine of one user-triggered async call. Each Begin
// hands out a ticket; Finish with a ticket from before the last Reset is
// ignored, which keeps a completion that outlives its screen from touching
// the screen's state.
type Action struct {
	phase Phase
	gen   uint64
}

// Phase returns the current phase.
func (a *Action) Phase() Phase { return a.phase }

// Begin moves to Pending. It fails while another call is pending.
func (a *Action) Begin() (uint64, bool) {
	if a.phase == Pending {
		return 0, false
	}
	a.gen++
	a.phase = Pending
	return a.gen, true
}

// Finish settles the call started with ticket. It reports false when the
// ticket is stale.
func (a *Action) Finish(ticket uint64, err error) bool {
	if ticket != a.gen || a.phase != Pending {
		return false
	}
	if err != nil {
		a.phase = Failed
	} else {
		a.phase = Succeeded
	}
	return true
}

// Reset drops any pending call and returns to Idle.
func (a *Action) Reset() {
	a.gen++
	a.phase = Idle
}
