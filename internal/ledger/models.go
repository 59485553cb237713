package ledger

import "time"

// Status is the lifecycle state of one search unit.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Settings captures the effective run configuration stored alongside a run.
type Settings struct {
	Binary      string  `json:"binary"`
	SegmentsXML string  `json:"segments_xml"`
	FastaPath   string  `json:"fasta_path,omitempty"`
	Precision   float64 `json:"precision"`
	PerBase     float64 `json:"per_base_bound"`
	Metric      string  `json:"metric"`
	Threads     int     `json:"threads"`
	Randomize   int     `json:"randomize"`
	Seed        uint64  `json:"seed"`
	Parallel    bool    `json:"parallel_probes"`
}

// Run is one estimate invocation.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	OutputPath  string
	Settings    Settings
	TotalUnits  int
	FailedUnits int
}

// Finished reports whether FinishRun has been recorded.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// UnitKey addresses one (combination, replicate) unit within a run.
type UnitKey struct {
	Combination int
	Replicate   int
}

// Unit is one combination or replicate search.
type Unit struct {
	RunID       string
	Combination int
	Replicate   int
	Name        string
	Segment     string
	Status      Status
	Transitions int
	Probes      int
	Error       string
	UpdatedAt   time.Time
}

// Key returns the unit's address.
func (u Unit) Key() UnitKey {
	return UnitKey{Combination: u.Combination, Replicate: u.Replicate}
}
