package models

type FeedbackPriority string

const (
	PriorityHigh   FeedbackPriority = "high"
	PriorityMedium FeedbackPriority = "medium"
	PriorityLow    FeedbackPriority = "low"
)

// Rank orders priorities for sorting, high first. Unknown values sort last.
func (p FeedbackPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

type FeedbackCategory string

const (
	CategorySkills     FeedbackCategory = "skills"
	CategoryExperience FeedbackCategory = "experience"
	CategoryKeywords   FeedbackCategory = "keywords"
	CategoryFormatting FeedbackCategory = "formatting"
	CategoryGeneral    FeedbackCategory = "general"
)

// FeedbackItem is one piece of coaching advice. Items are ordered by
// priority, then by generation order within the same priority.
type FeedbackItem struct {
	Category   FeedbackCategory `json:"category"`
	Priority   FeedbackPriority `json:"priority"`
	Suggestion string           `json:"suggestion"`
	Impact     string           `json:"impact,omitempty"`
}

// Feedback bundles the generated coaching advice with the top-level
// assessment fields required by the response schema.
type Feedback struct {
	OverallAssessment    string         `json:"overall_assessment"`
	Strengths            []string       `json:"strengths"`
	PriorityImprovements []string       `json:"priority_improvements"`
	Recommendations      []FeedbackItem `json:"recommendations"`
}
