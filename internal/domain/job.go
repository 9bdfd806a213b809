package domain

// JobStatus represents the lifecycle state of a background query run.
type JobStatus string

// Background query lifecycle statuses. A job starts PENDING, moves to
// RUNNING when its worker begins, and ends in exactly one terminal state.
const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCanceled  JobStatus = "CANCELED"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// QueryMonitor observes one background query run. The query service calls
// these methods; implementations never call back into the service.
//
// ShouldCancelQuery is polled while the run is in flight. The three
// notification methods are terminal: for any single run exactly one of them
// is invoked, exactly once.
type QueryMonitor interface {
	// ShouldCancelQuery reports whether the run should be aborted.
	ShouldCancelQuery() bool
	// QueryCancelled is called when a cancel request was honored.
	QueryCancelled()
	// QueryCancelledWithError is called when the run failed.
	QueryCancelledWithError()
	// QueryCompleted is called when results were published.
	QueryCompleted()
}
