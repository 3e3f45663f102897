package searchindex

// State is a lifecycle state of the managed index.
type State int32

// Lifecycle states. There is no transition back to Absent.
const (
	Absent State = iota
	Loading
	Building
	Ready
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Loading:
		return "loading"
	case Building:
		return "building"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Index sources reported by Status.
const (
	SourceCache = "cache"
	SourceBuild = "build"
)

// Outcome labels reported to an Observer.
const (
	ResultOK    = "ok"
	ResultMiss  = "miss"
	ResultError = "error"
)

// Status is a snapshot of the lifecycle.
type Status struct {
	State     State
	Source    string
	Documents int
	// Err is the build failure that left the index unusable, if any.
	Err error
}
