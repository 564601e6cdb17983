package models

import "strings"

type EntityType string

const (
	EntitySkill     EntityType = "skill"
	EntityJobTitle  EntityType = "job_title"
	EntityCompany   EntityType = "company"
	EntityEducation EntityType = "education"
	EntityContact   EntityType = "contact_info"
)

type EntitySource string

const (
	// SourceModel marks entities produced by the NER model.
	SourceModel EntitySource = "model"
	// SourceRules marks entities produced by the rule-based fallback.
	SourceRules EntitySource = "rules"
)

// Entity is one recognized fact from resume text.
type Entity struct {
	Type       EntityType   `json:"type"`
	Text       string       `json:"text"`
	Confidence float64      `json:"confidence"`
	Source     EntitySource `json:"source"`
}

// Key returns the case-insensitive deduplication key for the entity.
func (e Entity) Key() string {
	return string(e.Type) + "|" + strings.ToLower(strings.TrimSpace(e.Text))
}

// ContactInfo is the structured view over contact entities.
type ContactInfo struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}
