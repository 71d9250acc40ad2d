package markdown

import (
	"fmt"
	"strings"

	"choicesherpa/api/internal/document"
)

// ValidateStructure checks a document's skeleton without extracting data.
// Everything it finds is a warning: documents edited outside the app are
// expected to drift, and validation must never block a sync.
func ValidateStructure(text string) []ParseError {
	lines := strings.Split(text, "\n")
	boundaries := scanBoundaries(lines)

	var issues []ParseError

	hasTitle := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "# ") {
			hasTitle = true
			break
		}
	}
	if !hasTitle {
		issues = append(issues, ParseError{
			Line:     1,
			Message:  "document has no title heading",
			Severity: SeverityWarning,
		})
	}

	seen := make(map[document.Component]bool, len(boundaries))
	lastNumber := 0
	for _, boundary := range boundaries {
		number := boundary.Component.Number()
		if seen[boundary.Component] {
			issues = append(issues, ParseError{
				Line:     boundary.StartLine - 1,
				Message:  fmt.Sprintf("section %d (%s) appears more than once", number, boundary.Component.Title()),
				Severity: SeverityWarning,
			})
			continue
		}
		seen[boundary.Component] = true
		if number < lastNumber {
			issues = append(issues, ParseError{
				Line:     boundary.StartLine - 1,
				Message:  fmt.Sprintf("section %d (%s) is out of canonical order", number, boundary.Component.Title()),
				Severity: SeverityWarning,
			})
		}
		if number > lastNumber {
			lastNumber = number
		}
	}

	for _, component := range document.Components() {
		if !seen[component] {
			issues = append(issues, ParseError{
				Line:     len(lines),
				Message:  fmt.Sprintf("section %d (%s) is missing", component.Number(), component.Title()),
				Severity: SeverityWarning,
			})
		}
	}
	return issues
}
