package services

import "strings"

// skillsVocabulary is the curated lookup used by the rule-based fallback
// extractor. Entries are matched case-insensitively on word boundaries.
var skillsVocabulary = []string{
	// Languages
	"Go", "Golang", "Python", "Java", "JavaScript", "TypeScript", "C", "C++",
	"C#", "Ruby", "PHP", "Swift", "Kotlin", "Rust", "Scala", "R", "SQL",
	// Web and frameworks
	"React", "Vue", "Angular", "Node.js", "Django", "Flask", "FastAPI",
	"Spring", "Rails", "Express", "GraphQL", "REST", "gRPC",
	// Data stores
	"PostgreSQL", "MySQL", "MongoDB", "Redis", "Elasticsearch", "Cassandra",
	"SQLite", "DynamoDB", "Kafka", "RabbitMQ",
	// Cloud and infrastructure
	"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Terraform", "Ansible",
	"Jenkins", "Git", "CI/CD", "Linux", "Nginx",
	// ML and data
	"TensorFlow", "PyTorch", "Pandas", "NumPy", "Scikit-learn", "Spark",
	"Machine Learning", "Deep Learning", "NLP", "Data Science",
	// Practices
	"Agile", "Scrum", "TDD", "Microservices", "DevOps",
}

// skillNormalizations maps common lowercase variants to a canonical
// display form so deduplication collapses spelling variants.
var skillNormalizations = map[string]string{
	"golang":     "Go",
	"javascript": "JavaScript",
	"typescript": "TypeScript",
	"nodejs":     "Node.js",
	"node.js":    "Node.js",
	"reactjs":    "React",
	"vuejs":      "Vue",
	"angularjs":  "Angular",
	"postgres":   "PostgreSQL",
	"postgresql": "PostgreSQL",
	"mysql":      "MySQL",
	"mongodb":    "MongoDB",
	"aws":        "AWS",
	"gcp":        "GCP",
	"azure":      "Azure",
	"html5":      "HTML",
	"css3":       "CSS",
	"k8s":        "Kubernetes",
}

// jobTitleKeywords flag resume lines that look like position titles.
var jobTitleKeywords = []string{
	"engineer", "developer", "programmer", "analyst", "manager", "director",
	"lead", "senior", "junior", "principal", "architect", "consultant",
	"specialist", "coordinator", "administrator", "technician", "designer",
	"scientist", "researcher", "intern", "associate", "executive", "officer",
}

// educationKeywords flag resume lines that look like education entries.
var educationKeywords = []string{
	"university", "college", "school", "institute", "academy", "bachelor",
	"master", "phd", "doctorate", "degree", "diploma", "certificate",
	"bsc", "msc", "mba", "beng", "meng",
}

// companyIndicators flag resume lines that look like employer names.
var companyIndicators = []string{
	"inc", "corp", "ltd", "llc", "gmbh", "company", "technologies",
	"systems", "solutions", "labs",
}

// normalizeSkill maps a matched skill to its canonical display form.
func normalizeSkill(skill string) string {
	if canonical, ok := skillNormalizations[strings.ToLower(strings.TrimSpace(skill))]; ok {
		return canonical
	}
	return strings.TrimSpace(skill)
}
