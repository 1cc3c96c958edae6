package research

import (
	"regexp"
	"strings"
)

// sectionHeader matches a "## Answer", "## Evidence", or "## Implementation"
// line, case-sensitively on the section name the way the original research
// engine's response parser does.
var sectionHeader = regexp.MustCompile(`^##\s*(Answer|Evidence|Implementation)\s*$`)

// parsedSections holds the three optional named sections a provider
// response may be organized into.
type parsedSections struct {
	Answer         string
	Evidence       string
	Implementation string
}

// parseResponse splits a provider's raw response into Answer/Evidence/
// Implementation sections by "## <name>" headers. Parsing never fails: a
// response with no recognized headers is returned entirely as Answer, and
// any section before the first recognized header is folded into Answer too.
func parseResponse(body string) parsedSections {
	lines := strings.Split(body, "\n")

	var sections parsedSections
	current := &sections.Answer
	sawHeader := false
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			if *current != "" {
				*current += "\n\n" + text
			} else {
				*current = text
			}
		}
		buf.Reset()
	}

	for _, line := range lines {
		if m := sectionHeader.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			sawHeader = true
			switch m[1] {
			case "Answer":
				current = &sections.Answer
			case "Evidence":
				current = &sections.Evidence
			case "Implementation":
				current = &sections.Implementation
			}
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	if !sawHeader {
		sections.Answer = strings.TrimSpace(body)
		sections.Evidence = ""
		sections.Implementation = ""
	}
	return sections
}
