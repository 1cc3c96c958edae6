package research

import (
	"fmt"
	"strings"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

// Complexity is the second axis (alongside research type) the template
// registry keys on, derived from the classified audience level.
type Complexity string

const (
	ComplexityBasic        Complexity = "basic"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// ComplexityFromAudience maps the classifier's audience level onto the
// template registry's complexity axis.
func ComplexityFromAudience(level models.AudienceLevel) Complexity {
	switch level {
	case models.AudienceBeginner:
		return ComplexityBasic
	case models.AudienceAdvanced:
		return ComplexityAdvanced
	default:
		return ComplexityIntermediate
	}
}

// template holds the prompt skeleton and the parameter names it requires.
type template struct {
	body           string
	requiredParams []string
}

// templateKey keys the registry on research type and complexity, matching
// the original research engine's (research_type, complexity) lookup.
type templateKey struct {
	researchType models.ResearchType
	complexity   Complexity
}

// Registry holds one prompt template per (research_type, complexity) pair,
// each naming the parameters build_research_prompt requires for that type.
type Registry struct {
	templates map[templateKey]template
}

// requiredParamsByType is the per-research-type parameter table (§4.4):
// Decision needs problem+context, Implementation needs feature+technology,
// Troubleshooting needs problem+symptoms, Learning needs concept+level,
// Validation needs approach+criteria.
var requiredParamsByType = map[models.ResearchType][]string{
	models.ResearchLearning:        {"concept", "level"},
	models.ResearchImplementation:  {"feature", "technology"},
	models.ResearchTroubleshooting: {"problem", "symptoms"},
	models.ResearchDecision:        {"problem", "context"},
	models.ResearchValidation:      {"approach", "criteria"},
}

var bodyByType = map[models.ResearchType]string{
	models.ResearchLearning:        "Explain the concept of {{concept}} at a {{level}} level. Cover the fundamentals, common misconceptions, and a worked example.",
	models.ResearchImplementation:  "Describe how to implement {{feature}} using {{technology}}. Include the concrete steps, the tradeoffs, and a minimal code sketch.",
	models.ResearchTroubleshooting: "Diagnose the problem \"{{problem}}\" given the observed symptoms: {{symptoms}}. Identify the likely root cause and a fix.",
	models.ResearchDecision:        "Help decide on \"{{problem}}\" given the context: {{context}}. Weigh the alternatives and recommend one.",
	models.ResearchValidation:      "Validate the approach \"{{approach}}\" against these criteria: {{criteria}}. State whether it passes and why.",
}

var complexitySuffix = map[Complexity]string{
	ComplexityBasic:        "Write for someone new to this area: avoid jargon, define terms as you use them.",
	ComplexityIntermediate: "Assume working familiarity with the domain; skip basic definitions.",
	ComplexityAdvanced:     "Assume expert familiarity; focus on edge cases and subtleties rather than the basics.",
}

// NewRegistry builds the template registry with one entry per
// (research_type, complexity) combination.
func NewRegistry() *Registry {
	r := &Registry{templates: make(map[templateKey]template)}
	for rt, required := range requiredParamsByType {
		for _, c := range []Complexity{ComplexityBasic, ComplexityIntermediate, ComplexityAdvanced} {
			r.templates[templateKey{researchType: rt, complexity: c}] = template{
				body:           bodyByType[rt] + " " + complexitySuffix[c],
				requiredParams: required,
			}
		}
	}
	return r
}

// Render fills in a template's placeholders from params, returning
// models.ErrTemplateParam if a required parameter is missing or blank.
func (r *Registry) Render(rt models.ResearchType, complexity Complexity, params map[string]string) (string, error) {
	tmpl, ok := r.templates[templateKey{researchType: rt, complexity: complexity}]
	if !ok {
		return "", models.NewError(models.ErrTemplateParam, fmt.Sprintf("no template registered for research type %q", rt))
	}

	for _, name := range tmpl.requiredParams {
		if strings.TrimSpace(params[name]) == "" {
			return "", models.NewError(models.ErrTemplateParam, fmt.Sprintf("missing required template parameter %q for research type %q", name, rt)).
				WithDetails("research_type", string(rt)).
				WithDetails("parameter", name)
		}
	}

	body := tmpl.body
	for name, value := range params {
		body = strings.ReplaceAll(body, "{{"+name+"}}", value)
	}
	return body, nil
}

// RequiredParams returns the parameter names a research type's template
// needs, for callers building the params map before calling Render.
func RequiredParams(rt models.ResearchType) []string {
	return requiredParamsByType[rt]
}
