package transfer

import "fmt"

// State is the terminal decision reached for one asset.
type State int

const (
	// AlreadyRecorded means the ledger already holds a media row for the asset.
	AlreadyRecorded State = iota
	// AlreadyOnDestination means the image was on the destination without a
	// ledger record; only metadata is added.
	AlreadyOnDestination
	// Transferred means the image was fetched and uploaded.
	Transferred
	// TransferFailed means the image could not be fetched, probed, or uploaded.
	TransferFailed
)

func (s State) String() string {
	switch s {
	case AlreadyRecorded:
		return "already_recorded"
	case AlreadyOnDestination:
		return "already_on_destination"
	case Transferred:
		return "transferred"
	case TransferFailed:
		return "transfer_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is the result of processing one asset, including its progress trail.
type Outcome struct {
	Collection  string
	Upload      string
	Asset       string
	Source      string
	Bucket      string
	Destination string
	State       State
	Progress    []string
	// Recorded reports whether this asset changed the ledger.
	Recorded bool
	// Err holds the fault recorded for the asset, if any.
	Err error
}

func (o *Outcome) note(format string, args ...any) {
	o.Progress = append(o.Progress, fmt.Sprintf(format, args...))
}

// Summary counts outcomes of a batch by state.
type Summary struct {
	Total    int
	States   map[State]int
	Recorded int
	Faults   int
}

func (s *Summary) add(o Outcome) {
	if s.States == nil {
		s.States = make(map[State]int)
	}
	s.Total++
	s.States[o.State]++
	if o.Recorded {
		s.Recorded++
	}
	if o.Err != nil {
		s.Faults++
	}
}
