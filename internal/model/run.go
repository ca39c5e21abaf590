package model

import "time"

// Target is one listing page to scrape, routed by category and subfolder.
type Target struct {
	Category  string `json:"category" yaml:"category"`
	Subfolder string `json:"subfolder" yaml:"subfolder"`
	URL       string `json:"url" yaml:"url"`
	FeedURL   string `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
}

// Key returns the routing key "category/subfolder".
func (t Target) Key() string {
	if t.Subfolder == "" {
		return t.Category
	}
	return t.Category + "/" + t.Subfolder
}

// Artifact is a downloaded file belonging to a validated record.
type Artifact struct {
	RecordIndex int    `json:"record_index"`
	PDFURL      string `json:"pdf_url,omitempty"`
	Path        string `json:"path,omitempty"`
	FileName    string `json:"file_name,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Downloaded reports whether the artifact was written to disk.
func (a Artifact) Downloaded() bool {
	return a.Path != "" && a.Error == ""
}

// Exit statuses for a completed run.
const (
	ExitOK        = 0
	ExitWithError = 1
	ExitNoRecords = 2
)

// RunResult is the terminal output of one pipeline run.
type RunResult struct {
	Target       Target          `json:"target"`
	Records      []Record        `json:"records"`
	Stats        ValidationStats `json:"stats"`
	StrategyUsed Strategy        `json:"strategy_used,omitempty"`
	Window       DateWindow      `json:"window"`
	Errors       []string        `json:"errors,omitempty"`
	Attempts     []Attempt       `json:"attempts,omitempty"`
	Artifacts    []Artifact      `json:"artifacts,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// ExitStatus distinguishes "records, no errors", "records with errors" and
// "no records".
func (r *RunResult) ExitStatus() int {
	if r == nil || len(r.Records) == 0 {
		return ExitNoRecords
	}
	if len(r.Errors) > 0 {
		return ExitWithError
	}
	return ExitOK
}

// Duration returns the wall time of the run.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunStatus represents the lifecycle state of a persisted run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusEmpty    RunStatus = "empty"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted pipeline run.
type Run struct {
	ID        string     `json:"id"`
	Target    Target     `json:"target"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
