package services

import (
	"fmt"
	"strings"

	"resume-analyzer/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildFeedbackPrompt assembles the single structured prompt for feedback
// generation. The response contract is the fixed JSON schema validated by
// the feedback service; everything outside it is ignored.
func (pb *PromptBuilder) BuildFeedbackPrompt(
	jobDescription string,
	jobTitle string,
	entities []models.Entity,
	score *models.CompatibilityScore,
) string {
	if jobTitle == "" {
		jobTitle = "the target"
	}

	return fmt.Sprintf(`You are an expert career coach reviewing a candidate's resume against a job posting for a %s position.

JOB DESCRIPTION:
%s

EXTRACTED RESUME FACTS:
%s

SEMANTIC COMPATIBILITY SCORE: %.2f out of 100

MATCHED KEYWORDS: %s
MISSING KEYWORDS (most important first): %s

Your task is to produce concrete, prioritized advice that would improve this resume's fit for the posting.

Return your response in the following JSON format, and nothing else:
{
  "overall_assessment": "<2-3 sentence summary of the resume's fit>",
  "strengths": ["<strength 1>", "<strength 2>"],
  "priority_improvements": ["<most impactful change first>"],
  "recommendations": [
    {
      "category": "<one of: skills, experience, keywords, formatting, general>",
      "priority": "<one of: high, medium, low>",
      "suggestion": "<specific, actionable advice>",
      "impact": "<optional quantified estimate, e.g. '+10% keyword coverage'>"
    }
  ]
}

Be specific: reference actual keywords and facts from the inputs above. Do not invent facts about the candidate.`,
		jobTitle,
		jobDescription,
		formatEntities(entities),
		score.Similarity,
		formatKeywords(score.MatchedKeywords),
		formatKeywords(score.MissingKeywords),
	)
}

func formatEntities(entities []models.Entity) string {
	if len(entities) == 0 {
		return "(no entities extracted)"
	}

	byType := make(map[models.EntityType][]string)
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e.Text)
	}

	var parts []string
	for _, t := range []models.EntityType{
		models.EntitySkill,
		models.EntityJobTitle,
		models.EntityCompany,
		models.EntityEducation,
	} {
		if values, ok := byType[t]; ok {
			parts = append(parts, fmt.Sprintf("- %s: %s", t, strings.Join(values, ", ")))
		}
	}

	if len(parts) == 0 {
		return "(no entities extracted)"
	}
	return strings.Join(parts, "\n")
}

func formatKeywords(keywords []string) string {
	if len(keywords) == 0 {
		return "(none)"
	}
	return strings.Join(keywords, ", ")
}
