package model

import "time"

// BuildReport summarizes a single build run
type BuildReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	DocumentsTotal     int `json:"documents_total"`
	DocumentsProcessed int `json:"documents_processed"`
	DocumentsSkipped   int `json:"documents_skipped"` // Fewer than two terms
	DocumentsFailed    int `json:"documents_failed"`

	RawRelations    int                  `json:"raw_relations"`
	Matches         map[MatchMethod]int  `json:"matches"`
	Rejections      map[RejectReason]int `json:"rejections"`
	EdgesInserted   int                  `json:"edges_inserted"`
	EdgesReinforced int                  `json:"edges_reinforced"`

	Errors []DocumentError `json:"errors,omitempty"`
}

// DocumentError records a failure scoped to one document
type DocumentError struct {
	DocumentID int64  `json:"document_id"`
	Message    string `json:"message"`
}

// NewBuildReport creates an empty report
func NewBuildReport(runID string) *BuildReport {
	return &BuildReport{
		RunID:      runID,
		StartedAt:  time.Now().UTC(),
		Matches:    make(map[MatchMethod]int),
		Rejections: make(map[RejectReason]int),
	}
}

// Accepted returns the number of raw relations that became edges
func (r *BuildReport) Accepted() int {
	return r.EdgesInserted + r.EdgesReinforced
}

// Rejected returns the total number of rejected raw relations
func (r *BuildReport) Rejected() int {
	total := 0
	for _, n := range r.Rejections {
		total += n
	}
	return total
}

// DocumentStats is the outcome of building one document
type DocumentStats struct {
	DocumentID   int64
	Skipped      bool
	RawRelations int
	Matches      map[MatchMethod]int
	Rejections   map[RejectReason]int
	Inserted     int
	Reinforced   int
	Errors       []string // Per-edge write failures
}

// NewDocumentStats creates empty stats for a document
func NewDocumentStats(docID int64) *DocumentStats {
	return &DocumentStats{
		DocumentID: docID,
		Matches:    make(map[MatchMethod]int),
		Rejections: make(map[RejectReason]int),
	}
}

// Reject counts a rejected raw relation
func (s *DocumentStats) Reject(reason RejectReason) {
	s.Rejections[reason]++
}

// Add folds one document's outcome into the report. A nil stats with a
// non-nil err marks the document as failed.
func (r *BuildReport) Add(docID int64, stats *DocumentStats, err error) {
	if err != nil {
		r.DocumentsFailed++
		r.Errors = append(r.Errors, DocumentError{DocumentID: docID, Message: err.Error()})
		return
	}
	if stats == nil {
		return
	}
	if stats.Skipped {
		r.DocumentsSkipped++
		return
	}

	r.DocumentsProcessed++
	r.RawRelations += stats.RawRelations
	for m, n := range stats.Matches {
		r.Matches[m] += n
	}
	for reason, n := range stats.Rejections {
		r.Rejections[reason] += n
	}
	r.EdgesInserted += stats.Inserted
	r.EdgesReinforced += stats.Reinforced
	for _, msg := range stats.Errors {
		r.Errors = append(r.Errors, DocumentError{DocumentID: docID, Message: msg})
	}
}
