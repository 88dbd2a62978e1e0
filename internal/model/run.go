package model

// RunSummary records one completed pipeline phase for the run log and the
// manifest artifact.
type RunSummary struct {
	RunID      string            `json:"run_id"`
	Phase      string            `json:"phase"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at"`
	Counts     map[string]uint64 `json:"counts"`
}
