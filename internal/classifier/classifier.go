// Package classifier assigns a research type, audience level, and urgency to
// a raw query using keyword-rule scoring, per spec.md §4.1.
package classifier

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/fortitude-ai/fortitude/internal/config"
	"github.com/fortitude-ai/fortitude/pkg/models"
)

// Classifier scores queries against a fixed set of keyword rules and folds
// the result through a confidence squashing function and a fallback policy.
type Classifier struct {
	cfg   config.ClassifierConfig
	rules []Rule

	mu        sync.Mutex
	wordRegex map[string]*regexp.Regexp
}

// New creates a Classifier using the default rule set.
func New(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{
		cfg:       cfg,
		rules:     defaultResearchRules,
		wordRegex: make(map[string]*regexp.Regexp),
	}
}

// diacriticFolder strips combining marks (accents) after NFD decomposition,
// the standard Go idiom for accent-insensitive matching (mirrors the
// diacritic-insensitive whole-word matching requirement in spec.md §4.1).
var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func (c *Classifier) normalize(text string) string {
	text = strings.ToLower(text)
	if c.cfg.FoldDiacritics {
		if folded, _, err := transform.String(diacriticFolder, text); err == nil {
			text = folded
		}
	}
	return text
}

func (c *Classifier) wordMatcher(keyword string) *regexp.Regexp {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.wordRegex[keyword]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	c.wordRegex[keyword] = re
	return re
}

// score returns the weighted whole-word match count for a rule against the
// normalized query, and the keywords that matched.
func (c *Classifier) score(normalized string, rule Rule) (float64, []string) {
	var matched []string
	var score float64
	for _, kw := range rule.Keywords {
		if c.wordMatcher(c.normalize(kw)).MatchString(normalized) {
			matched = append(matched, kw)
			score += rule.Weight
		}
	}
	return score, matched
}

// squash maps a raw weighted score onto (0,1) confidence, saturating rather
// than growing unbounded as more keywords match.
func squash(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + 1.5)
}

func (c *Classifier) detectDimension(normalized string, rules map[string][]string) (string, float64) {
	best := ""
	bestScore := 0.0
	for label, keywords := range rules {
		var s float64
		for _, kw := range keywords {
			if c.wordMatcher(c.normalize(kw)).MatchString(normalized) {
				s++
			}
		}
		if s > bestScore {
			bestScore = s
			best = label
		}
	}
	return best, squash(bestScore)
}

func toAudienceMap(m map[models.AudienceLevel][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func toUrgencyMap(m map[models.Urgency][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func toDomainMap(m map[models.TechnicalDomain][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

// dimensionDefaults are the audience/urgency values the fallback policy
// infers from the winning research type when a dimension's own confidence
// falls below MinConfidence (§4.1: "infer defaults from research_type, e.g.
// Troubleshooting⇒Immediate+Intermediate, Learning⇒Exploratory+Beginner").
type dimensionDefaults struct {
	Audience models.AudienceLevel
	Urgency  models.Urgency
}

var researchTypeDefaults = map[models.ResearchType]dimensionDefaults{
	models.ResearchLearning:        {Audience: models.AudienceBeginner, Urgency: models.UrgencyExploratory},
	models.ResearchTroubleshooting: {Audience: models.AudienceIntermediate, Urgency: models.UrgencyImmediate},
	models.ResearchImplementation:  {Audience: models.AudienceIntermediate, Urgency: models.UrgencyPlanned},
	models.ResearchDecision:        {Audience: models.AudienceIntermediate, Urgency: models.UrgencyPlanned},
	models.ResearchValidation:      {Audience: models.AudienceIntermediate, Urgency: models.UrgencyPlanned},
}

// Classify scores a request against every rule and returns the
// highest-scoring research type, breaking ties by rule priority, together
// with the audience, urgency, and technical domain dimensions. fallback_used
// reflects the research_type dimension itself failing to match any rule
// (§8 scenario 1 requires fallback_used=false even though its urgency
// dimension is ambiguous, so only the primary dimension's fallback flips
// the flag; see DESIGN.md). When no rule matches, ResearchLearning is
// selected and confidence is capped at FallbackConfidenceCap. Independently,
// any of the audience/urgency/domain dimensions whose own detection
// confidence falls below MinConfidence is ambiguous: its value is inferred
// from the winning research type (audience, urgency) or defaults to General
// (domain), per the fallback policy in §4.1.
func (c *Classifier) Classify(req models.ClassifiedRequest) (*models.EnhancedClassification, error) {
	normalized := c.normalize(req.Query)

	var (
		bestType     models.ResearchType
		bestScore    float64
		bestPriority = -1
		bestKeywords []string
		dimensions   = make(map[string]float64)
	)

	for _, rule := range c.rules {
		score, matched := c.score(normalized, rule)
		dimensions[string(rule.ResearchType)] = squash(score)
		if score == 0 {
			continue
		}
		if score > bestScore || (score == bestScore && rule.Priority > bestPriority) {
			bestScore = score
			bestType = rule.ResearchType
			bestPriority = rule.Priority
			bestKeywords = matched
		}
	}

	fallbackUsed := bestScore == 0
	confidence := squash(bestScore)
	if fallbackUsed {
		bestType = models.ResearchLearning
		confidence = c.cfg.FallbackConfidenceCap
	}

	defaults := researchTypeDefaults[bestType]

	audienceLabel, audienceConf := c.detectDimension(normalized, toAudienceMap(audienceRules))
	audience := models.AudienceLevel(audienceLabel)
	if audienceConf < c.cfg.MinConfidence {
		audience = defaults.Audience
	}

	urgencyLabel, urgencyConf := c.detectDimension(normalized, toUrgencyMap(urgencyRules))
	urgency := models.Urgency(urgencyLabel)
	if urgencyConf < c.cfg.MinConfidence {
		urgency = defaults.Urgency
	}

	domainLabel, domainConf := c.detectDimension(normalized, toDomainMap(domainRules))
	domain := models.TechnicalDomain(domainLabel)
	if domainConf < c.cfg.MinConfidence {
		domain = models.DomainGeneral
	}

	return &models.EnhancedClassification{
		ResearchType:    bestType,
		AudienceLevel:   audience,
		TechnicalDomain: domain,
		Urgency:         urgency,
		Confidence:      confidence,
		MatchedKeywords: bestKeywords,
		RulePriority:    bestPriority,
		FallbackUsed:    fallbackUsed,
		DimensionScores: dimensions,
	}, nil
}

// GetAllClassifications scores the query against every rule, useful for
// callers that want the full ranked distribution rather than just the
// winner (mirrors the original's get_all_classifications() contract).
func (c *Classifier) GetAllClassifications(req models.ClassifiedRequest) map[models.ResearchType]float64 {
	normalized := c.normalize(req.Query)
	out := make(map[models.ResearchType]float64, len(c.rules))
	for _, rule := range c.rules {
		score, _ := c.score(normalized, rule)
		out[rule.ResearchType] = squash(score)
	}
	return out
}
