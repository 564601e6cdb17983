package models

import "time"

type StageStatus string

const (
	StageSuccess StageStatus = "success"
	// StageDegraded means the stage completed through fallback logic.
	StageDegraded StageStatus = "degraded"
	StageFailed   StageStatus = "failed"
	// StageSkipped means the stage was not attempted (insufficient budget).
	StageSkipped StageStatus = "skipped"
)

// StageReport records how each pipeline stage completed. Degradation is
// metadata, not failure: a result with degraded stages is still a result.
type StageReport struct {
	Ingestion StageStatus `json:"ingestion"`
	Entities  StageStatus `json:"entity_extraction"`
	Semantic  StageStatus `json:"semantic_scoring"`
	Feedback  StageStatus `json:"feedback_generation"`
}

// AnalysisResult is the final pipeline output. The orchestrator assembles
// it once and never mutates it afterwards. Elapsed and CreatedAt are
// per-run timing metadata; every other field is a pure function of the
// request.
type AnalysisResult struct {
	ID         string             `json:"id,omitempty"`
	JobTitle   string             `json:"job_title,omitempty"`
	Extraction ExtractedText      `json:"extraction"`
	Entities   []Entity           `json:"entities"`
	Contact    ContactInfo        `json:"contact_info"`
	Score      CompatibilityScore `json:"score"`
	Feedback   Feedback           `json:"feedback"`
	Stages     StageReport        `json:"stages"`
	Elapsed    time.Duration      `json:"elapsed"`
	CreatedAt  time.Time          `json:"created_at"`
}
