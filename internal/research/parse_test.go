package research

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseResponse_SplitsAllThreeSections(t *testing.T) {
	body := "## Answer\nUse a sync.WaitGroup.\n\n## Evidence\nThe stdlib docs recommend it.\n\n## Implementation\nwg.Add(1); go func(){ defer wg.Done() }()"

	sections := parseResponse(body)
	assert.Equal(t, "Use a sync.WaitGroup.", sections.Answer)
	assert.Equal(t, "The stdlib docs recommend it.", sections.Evidence)
	assert.Equal(t, "wg.Add(1); go func(){ defer wg.Done() }()", sections.Implementation)
}

func TestParseResponse_NoHeaders_EntireBodyIsAnswer(t *testing.T) {
	body := "Just use a mutex, there's nothing more to it."
	sections := parseResponse(body)
	assert.Equal(t, body, sections.Answer)
	assert.Empty(t, sections.Evidence)
	assert.Empty(t, sections.Implementation)
}

func TestParseResponse_TextBeforeFirstHeaderFoldsIntoAnswer(t *testing.T) {
	body := "Some preamble.\n\n## Evidence\nCited source."
	sections := parseResponse(body)
	assert.Equal(t, "Some preamble.", sections.Answer)
	assert.Equal(t, "Cited source.", sections.Evidence)
}

func TestParseResponse_OnlyAnswerSection(t *testing.T) {
	body := "## Answer\nShort answer only."
	sections := parseResponse(body)
	assert.Equal(t, "Short answer only.", sections.Answer)
	assert.Empty(t, sections.Evidence)
	assert.Empty(t, sections.Implementation)
}
