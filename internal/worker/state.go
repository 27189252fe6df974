package worker

// State is the lifecycle state of a worker.
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateBusyIndexing
	StateBusyQuerying
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateBusyIndexing:
		return "busy-indexing"
	case StateBusyQuerying:
		return "busy-querying"
	case StateTerminated:
		return "terminated"
	}
	return "unknown"
}
