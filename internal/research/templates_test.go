package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortitude-ai/fortitude/pkg/models"
)

func TestRegistry_RenderLearning_SubstitutesParams(t *testing.T) {
	r := NewRegistry()
	prompt, err := r.Render(models.ResearchLearning, ComplexityBasic, map[string]string{
		"concept": "goroutines",
		"level":   "beginner",
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "goroutines")
	assert.Contains(t, prompt, "beginner")
}

func TestRegistry_RenderMissingParam_ReturnsTemplateError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Render(models.ResearchImplementation, ComplexityIntermediate, map[string]string{
		"feature": "caching",
		// technology intentionally omitted
	})
	require.Error(t, err)

	var fortitudeErr *models.Error
	require.ErrorAs(t, err, &fortitudeErr)
	assert.Equal(t, models.ErrTemplateParam, fortitudeErr.Code)
}

func TestRequiredParams_MatchesPerTypeTable(t *testing.T) {
	assert.ElementsMatch(t, []string{"problem", "context"}, RequiredParams(models.ResearchDecision))
	assert.ElementsMatch(t, []string{"approach", "criteria"}, RequiredParams(models.ResearchValidation))
	assert.ElementsMatch(t, []string{"problem", "symptoms"}, RequiredParams(models.ResearchTroubleshooting))
}

func TestComplexityFromAudience(t *testing.T) {
	assert.Equal(t, ComplexityBasic, ComplexityFromAudience(models.AudienceBeginner))
	assert.Equal(t, ComplexityIntermediate, ComplexityFromAudience(models.AudienceIntermediate))
	assert.Equal(t, ComplexityAdvanced, ComplexityFromAudience(models.AudienceAdvanced))
}
