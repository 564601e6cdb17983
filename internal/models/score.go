package models

// CompatibilityScore is the semantic match between a resume and a job
// description. Similarity is normalized to [0, 100] with two-decimal
// precision. MatchedKeywords and MissingKeywords are always disjoint;
// MissingKeywords is ordered by descending frequency in the job text.
type CompatibilityScore struct {
	Similarity      float64  `json:"similarity"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
}
