// Package model defines the records, batches and run results shared across
// the extraction pipeline.
package model

import "time"

// Strategy identifies the extraction method that produced a record.
type Strategy string

const (
	StrategyNone     Strategy = ""
	StrategyAPI      Strategy = "api"
	StrategySemantic Strategy = "semantic"
	StrategyVision   Strategy = "vision"
)

// Valid reports whether s is one of the known extraction strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyAPI, StrategySemantic, StrategyVision:
		return true
	}
	return false
}

// Record is one extracted announcement.
type Record struct {
	Title          string   `json:"title"`
	IssueDate      Date     `json:"issue_date"`
	Confidence     float64  `json:"confidence"`
	Category       string   `json:"category,omitempty"`
	SourceStrategy Strategy `json:"source_strategy"`
	DetailURL      string   `json:"detail_url,omitempty"`
	PDFURL         string   `json:"pdf_url,omitempty"`
}

// ExtractionBatch is the output of a single extraction attempt.
type ExtractionBatch struct {
	Records      []Record `json:"records"`
	StrategyUsed Strategy `json:"strategy_used"`
	RawCount     int      `json:"raw_count"`
	Error        string   `json:"error,omitempty"`
}

// Empty reports whether the batch carries no records.
func (b *ExtractionBatch) Empty() bool {
	return b == nil || len(b.Records) == 0
}

// Failed reports whether the batch is empty because of an execution error.
func (b *ExtractionBatch) Failed() bool {
	return b != nil && b.Error != ""
}

// ValidationStats counts how each input record was disposed of. Apart from
// RemappedCategory every counter is a disjoint bucket.
type ValidationStats struct {
	TotalInput             int `json:"total_input"`
	ValidCount             int `json:"valid_count"`
	RemovedEmptyTitle      int `json:"removed_empty_title"`
	RemovedUnrealisticDate int `json:"removed_unrealistic_date"`
	RemovedDuplicate       int `json:"removed_duplicate"`
	ExcludedByKeyword      int `json:"excluded_by_keyword"`
	RemappedCategory       int `json:"remapped_category"`
	OutOfWindow            int `json:"out_of_window"`
}

// Accounted returns the sum of the disjoint buckets. It equals TotalInput for
// any stats produced by the validator.
func (s ValidationStats) Accounted() int {
	return s.ValidCount + s.RemovedEmptyTitle + s.ExcludedByKeyword +
		s.RemovedUnrealisticDate + s.RemovedDuplicate + s.OutOfWindow
}

// DateWindow is a closed calendar date range.
type DateWindow struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Contains reports whether d lies inside the window.
func (w DateWindow) Contains(d Date) bool {
	return d.Between(w.Start, w.End)
}

// ValidatedBatch is the validator's output for one run.
type ValidatedBatch struct {
	Records      []Record        `json:"records"`
	Stats        ValidationStats `json:"stats"`
	Category     string          `json:"category"`
	StrategyUsed Strategy        `json:"strategy_used"`
	Window       DateWindow      `json:"window"`
}

// Attempt is one audit-trail entry for an extraction attempt.
type Attempt struct {
	Number   int           `json:"number"`
	Strategy Strategy      `json:"strategy"`
	Refined  bool          `json:"refined,omitempty"`
	Records  int           `json:"records"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}
