package classifier

import "github.com/fortitude-ai/fortitude/pkg/models"

// Rule scores a query against a research type by counting whole-word
// keyword matches, weighted and ranked by priority. Higher-priority rules
// win ties when several research types match (§4.1).
type Rule struct {
	ResearchType models.ResearchType
	Keywords     []string
	Priority     int
	Weight       float64
}

// defaultResearchRules mirrors the keyword families from the distilled
// spec's classification examples (beginner-learning, implementation,
// troubleshooting, decision, validation) and from
// classification_test_fixtures.rs's fixture queries.
var defaultResearchRules = []Rule{
	{
		ResearchType: models.ResearchLearning,
		Priority:     10,
		Weight:       1.0,
		Keywords: []string{
			"what is", "what are", "explain", "learn", "understand", "beginner",
			"introduction", "tutorial", "basics", "concept", "how does",
		},
	},
	{
		ResearchType: models.ResearchImplementation,
		Priority:     10,
		Weight:       1.0,
		Keywords: []string{
			"implement", "build", "write code", "create a", "write a function",
			"how do i", "how to build", "code example", "integrate",
		},
	},
	{
		ResearchType: models.ResearchTroubleshooting,
		Priority:     12,
		Weight:       1.1,
		Keywords: []string{
			"error", "fails", "failing", "broken", "crash", "exception",
			"bug", "not working", "fix", "debug", "panic", "outage",
		},
	},
	{
		ResearchType: models.ResearchDecision,
		Priority:     9,
		Weight:       1.0,
		Keywords: []string{
			"should i", "which is better", "compare", "versus", "vs",
			"trade-off", "tradeoff", "pros and cons", "recommend",
		},
	},
	{
		ResearchType: models.ResearchValidation,
		Priority:     9,
		Weight:       1.0,
		Keywords: []string{
			"is this correct", "review my", "validate", "double check",
			"verify", "did i do this right", "best practice",
		},
	},
}

// audienceRules detects the requester's experience level (§4.1 dimensions).
var audienceRules = map[models.AudienceLevel][]string{
	models.AudienceBeginner: {
		"beginner", "new to", "just started", "never used", "first time",
		"eli5", "simple terms", "basics",
	},
	models.AudienceAdvanced: {
		"advanced", "production", "at scale", "performance critical",
		"internals", "deep dive", "edge case",
	},
}

// urgencyRules detects the requester's time sensitivity.
var urgencyRules = map[models.Urgency][]string{
	models.UrgencyImmediate: {
		"urgent", "asap", "production is down", "outage", "critical",
		"right now", "immediately",
	},
	models.UrgencyExploratory: {
		"just curious", "exploring", "someday", "eventually", "no rush",
		"when you have time",
	},
}

// domainRules detects the subject-matter area of a request, grounded on
// unit_context_detection_tests.rs's get_domain_test_cases() and
// classification_test_fixtures.rs's get_domain_test_fixtures() keyword
// lists for each TechnicalDomain.
var domainRules = map[models.TechnicalDomain][]string{
	models.DomainRust: {
		"rust", "cargo", "tokio", "ownership", "borrowing", "lifetimes",
		"async functions", "memory safety",
	},
	models.DomainWeb: {
		"react", "hooks", "redux", "responsive", "html5", "css3",
		"javascript", "rest api", "node.js", "frontend", "http protocol",
	},
	models.DomainPython: {
		"python", "pandas", "numpy", "scikit-learn", "fastapi", "pydantic",
		"sqlalchemy", "django",
	},
	models.DomainDevOps: {
		"docker", "kubernetes", "helm", "ci/cd", "pipeline", "terraform",
		"containerization", "monitoring and logging", "aws cloud",
	},
	models.DomainAI: {
		"machine learning", "neural network", "tensorflow", "pytorch",
		"deep learning", "computer vision", "natural language processing",
	},
	models.DomainDatabase: {
		"postgresql", "mongodb", "sql database", "query optimization",
		"indexing", "redis", "aggregation", "document database",
	},
	models.DomainArchitecture: {
		"microservices", "system design", "distributed systems",
		"event-driven architecture",
	},
	models.DomainSecurity: {
		"vulnerability", "exploit", "authentication", "encryption", "cve",
		"penetration test", "owasp", "security audit",
	},
}
