package constants

// RunStatus is the canonical status for rows in intake_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued    RunStatus = "QUEUED"    // waiting in the batch queue
	RunStatusRunning   RunStatus = "RUNNING"   // in progress
	RunStatusSucceeded RunStatus = "SUCCEEDED" // terminal success
	RunStatusFailed    RunStatus = "FAILED"    // terminal failure
)
