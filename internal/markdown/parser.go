package markdown

import (
	"regexp"
	"strconv"
	"strings"

	"choicesherpa/api/internal/document"
)

// The wire grammar is intentionally small: headings, blockquotes, checkboxes,
// list items, key-value lines, and pipe tables. Each section extractor is a
// line fold carrying explicit local state (current subsection, table context)
// so it stays a pure function of its input text.
var (
	reSectionHeading = regexp.MustCompile(`^##\s+(\d+)\.\s+(.+?)\s*$`)
	reSubsection     = regexp.MustCompile(`^###\s+(.+?)\s*$`)
	reCheckbox       = regexp.MustCompile(`^[-*]\s+\[([ xX])\]\s+(.+)$`)
	reListItem       = regexp.MustCompile(`^[-*]\s+(.+)$`)
	reOrderedItem    = regexp.MustCompile(`^\d+\.\s+(.+)$`)
	reKeyValue       = regexp.MustCompile(`^\*\*([^*]+?):\*\*\s*(.*)$`)
	reBlockquote     = regexp.MustCompile(`^>\s?(.*)$`)
	reParenNote      = regexp.MustCompile(`^(.*\S)\s*\(([^()]*)\)$`)
)

// Parse extracts structured section data and document metadata from markdown.
// Section-level issues are recorded inline and never abort the document.
func Parse(text string) ParseResult {
	lines := strings.Split(text, "\n")
	boundaries := scanBoundaries(lines)

	result := ParseResult{
		Metadata: scanMetadata(lines, boundaries),
		Sections: make([]ParsedSection, 0, len(boundaries)),
	}
	for _, boundary := range boundaries {
		body := lines[boundary.StartLine-1 : boundary.EndLine]
		result.Sections = append(result.Sections, parseSectionLines(boundary.Component, boundary.Heading, body, boundary.StartLine))
	}
	return result
}

// ParseSection parses one section in isolation. A leading section heading is
// tolerated and skipped.
func ParseSection(text string, expected document.Component) ParsedSection {
	lines := strings.Split(text, "\n")
	heading := expected.Title()
	if len(lines) > 0 {
		if match := reSectionHeading.FindStringSubmatch(lines[0]); match != nil {
			heading = match[2]
			lines = lines[1:]
		} else if strings.HasPrefix(lines[0], "## ") {
			heading = strings.TrimSpace(strings.TrimPrefix(lines[0], "## "))
			lines = lines[1:]
		}
	}
	return parseSectionLines(expected, heading, lines, 1)
}

// scanBoundaries builds the ordered section boundary list from `## N.`
// headings, closing each boundary when the next opens. Only numbers 1..8 are
// boundaries; anything else stays inside the preceding section.
func scanBoundaries(lines []string) []SectionBoundary {
	var boundaries []SectionBoundary
	for i, line := range lines {
		match := reSectionHeading.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		component, ok := document.ComponentAt(number)
		if !ok {
			continue
		}
		if n := len(boundaries); n > 0 {
			boundaries[n-1].EndLine = i
		}
		boundaries = append(boundaries, SectionBoundary{
			Component: component,
			StartLine: i + 2, // body begins on the line after the heading
			EndLine:   len(lines),
			Heading:   match[2],
		})
	}
	return boundaries
}

// scanMetadata reads document-level metadata from lines outside every section
// boundary: the first `#` heading as the title, and a blockquote carrying
// Status / Quality Score fields.
func scanMetadata(lines []string, boundaries []SectionBoundary) Metadata {
	inSection := make([]bool, len(lines))
	for _, boundary := range boundaries {
		for i := boundary.StartLine - 2; i < boundary.EndLine && i < len(lines); i++ {
			if i >= 0 {
				inSection[i] = true
			}
		}
	}

	var meta Metadata
	for i, line := range lines {
		if inSection[i] {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if meta.Title == "" && strings.HasPrefix(trimmed, "# ") {
			meta.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			continue
		}
		quote := reBlockquote.FindStringSubmatch(trimmed)
		if quote == nil {
			continue
		}
		for _, field := range strings.Split(quote[1], "|") {
			field = strings.TrimSpace(field)
			if value, ok := strings.CutPrefix(field, "Status:"); ok {
				meta.Status = strings.TrimSpace(value)
			}
			if value, ok := strings.CutPrefix(field, "Quality Score:"); ok {
				if score, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
					meta.QualityScore = &score
				}
			}
		}
	}
	return meta
}

func parseSectionLines(component document.Component, heading string, lines []string, baseLine int) ParsedSection {
	section := ParsedSection{
		Component: component,
		Heading:   heading,
		RawText:   strings.Join(lines, "\n"),
	}

	// The placeholder marker wins over everything else in the section.
	for _, line := range lines {
		if strings.TrimSpace(line) == EmptyMarker {
			section.Data = emptyData(component)
			return section
		}
	}

	data, issues := extractSection(component, lines, baseLine)
	section.Errors = issues
	if data == nil {
		section.Errors = append(section.Errors, ParseError{
			Line:     baseLine,
			Message:  "section could not be interpreted for component " + string(component),
			Severity: SeverityError,
		})
		return section
	}
	section.Data = data
	if dataIsEmpty(data) {
		section.Errors = append(section.Errors, ParseError{
			Line:     baseLine,
			Message:  "section contains no recognizable data",
			Severity: SeverityWarning,
		})
	}
	return section
}

func emptyData(component document.Component) any {
	switch component {
	case document.ComponentProblem:
		return &ProblemData{}
	case document.ComponentObjectives:
		return &ObjectivesData{}
	case document.ComponentAlternatives:
		return &AlternativesData{}
	case document.ComponentConsequences:
		return &ConsequencesData{}
	case document.ComponentTradeoffs:
		return &TradeoffsData{}
	case document.ComponentUncertainties:
		return &UncertaintiesData{}
	case document.ComponentRiskTolerance:
		return &RiskToleranceData{}
	case document.ComponentLinkedDecisions:
		return &LinkedDecisionsData{}
	case document.ComponentDecision:
		return &DecisionData{}
	}
	return nil
}

func extractSection(component document.Component, lines []string, baseLine int) (any, []ParseError) {
	switch component {
	case document.ComponentProblem:
		return extractProblem(lines)
	case document.ComponentObjectives:
		return extractObjectives(lines, baseLine)
	case document.ComponentAlternatives:
		return extractAlternatives(lines)
	case document.ComponentConsequences:
		return extractConsequences(lines, baseLine)
	case document.ComponentTradeoffs:
		return extractTradeoffs(lines)
	case document.ComponentUncertainties:
		return extractUncertainties(lines)
	case document.ComponentRiskTolerance:
		return extractRiskTolerance(lines)
	case document.ComponentLinkedDecisions:
		return extractLinkedDecisions(lines)
	case document.ComponentDecision:
		return extractDecision(lines)
	}
	return nil, nil
}

// lineShape classifies one trimmed line against the fixed grammar.
type lineShape struct {
	subsection string // set when the line is a ### heading
	quote      string
	key        string
	value      string
	checkText  string
	checkDone  bool
	isCheckbox bool
	listText   string
	isList     bool
	orderText  string
	isOrdered  bool
	isTable    bool
}

func classify(line string) (lineShape, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return lineShape{}, false
	}
	var shape lineShape
	switch {
	case strings.HasPrefix(trimmed, "### "):
		shape.subsection = strings.ToLower(strings.TrimSpace(reSubsection.FindStringSubmatch(trimmed)[1]))
	case strings.HasPrefix(trimmed, "|"):
		shape.isTable = true
	case reBlockquote.MatchString(trimmed):
		shape.quote = strings.TrimSpace(reBlockquote.FindStringSubmatch(trimmed)[1])
	case reCheckbox.MatchString(trimmed):
		match := reCheckbox.FindStringSubmatch(trimmed)
		shape.isCheckbox = true
		shape.checkDone = match[1] != " "
		shape.checkText = strings.TrimSpace(match[2])
	case reListItem.MatchString(trimmed):
		shape.isList = true
		shape.listText = strings.TrimSpace(reListItem.FindStringSubmatch(trimmed)[1])
	case reKeyValue.MatchString(trimmed):
		match := reKeyValue.FindStringSubmatch(trimmed)
		shape.key = strings.TrimSpace(match[1])
		shape.value = strings.TrimSpace(match[2])
	case reOrderedItem.MatchString(trimmed):
		shape.isOrdered = true
		shape.orderText = strings.TrimSpace(reOrderedItem.FindStringSubmatch(trimmed)[1])
	default:
		return lineShape{}, false
	}
	return shape, true
}

func checklistItem(text string, done, splitNote bool) ChecklistItem {
	item := ChecklistItem{Text: text, Done: done}
	if !splitNote {
		return item
	}
	if match := reParenNote.FindStringSubmatch(text); match != nil {
		item.Text = strings.TrimSpace(match[1])
		item.Note = strings.TrimSpace(match[2])
	}
	return item
}

func extractProblem(lines []string) (any, []ParseError) {
	data := &ProblemData{}
	subsection := ""
	for _, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.quote != "":
			if data.Statement == "" {
				data.Statement = shape.quote
			}
		case shape.key == "Decision Maker":
			if match := reParenNote.FindStringSubmatch(shape.value); match != nil {
				data.DecisionMaker = strings.TrimSpace(match[1])
				data.DecisionMakerRole = strings.TrimSpace(match[2])
			} else {
				data.DecisionMaker = shape.value
			}
		case shape.isCheckbox || shape.isList:
			text := shape.listText
			if shape.isCheckbox {
				text = shape.checkText
			}
			switch subsection {
			case "constraints":
				data.Constraints = append(data.Constraints, text)
			case "assumptions":
				data.Assumptions = append(data.Assumptions, text)
			}
		}
	}
	return data, nil
}

func extractObjectives(lines []string, baseLine int) (any, []ParseError) {
	data := &ObjectivesData{}
	var issues []ParseError
	subsection := ""
	for i, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.isTable && subsection == "fundamental objectives":
			cells, kind := tableCells(line, "Objective")
			if kind != tableRowData {
				continue
			}
			if len(cells) < 3 {
				issues = append(issues, ParseError{
					Line:     baseLine + i,
					Message:  "objective row needs Objective, Measure, and Weight columns",
					Severity: SeverityWarning,
				})
				continue
			}
			data.Fundamental = append(data.Fundamental, Objective{
				Name:    cells[0],
				Measure: cells[1],
				Weight:  parseDecoratedInt(cells[2]),
			})
		case (shape.isList || shape.isCheckbox) && subsection == "means objectives":
			text := shape.listText
			if shape.isCheckbox {
				text = shape.checkText
			}
			data.Means = append(data.Means, text)
		}
	}
	return data, issues
}

func extractAlternatives(lines []string) (any, []ParseError) {
	data := &AlternativesData{}
	subsection := ""
	for _, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.isCheckbox && subsection == "candidates":
			data.Candidates = append(data.Candidates, checklistItem(shape.checkText, shape.checkDone, true))
		case shape.isList && subsection == "candidates":
			data.Candidates = append(data.Candidates, checklistItem(shape.listText, false, true))
		case (shape.isList || shape.isCheckbox) && subsection == "discarded":
			text := shape.listText
			if shape.isCheckbox {
				text = shape.checkText
			}
			data.Discarded = append(data.Discarded, text)
		}
	}
	return data, nil
}

func extractConsequences(lines []string, baseLine int) (any, []ParseError) {
	data := &ConsequencesData{}
	var issues []ParseError
	subsection := ""
	for i, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.quote != "":
			if data.Summary == "" {
				data.Summary = shape.quote
			}
		case shape.isTable && subsection == "consequence matrix":
			cells, kind := tableCells(line, "Criterion")
			switch kind {
			case tableRowHeader:
				data.Alternatives = cells[1:]
			case tableRowData:
				if len(cells) < 2 {
					issues = append(issues, ParseError{
						Line:     baseLine + i,
						Message:  "matrix row has no score columns",
						Severity: SeverityWarning,
					})
					continue
				}
				scores := make([]int, 0, len(cells)-1)
				for _, cell := range cells[1:] {
					scores = append(scores, parseDecoratedInt(cell))
				}
				if stripDecorations(cells[0]) == "Total" {
					data.Totals = scores
					continue
				}
				data.Rows = append(data.Rows, MatrixRow{Criterion: cells[0], Scores: scores})
			}
		}
	}
	if len(data.Rows) > 0 && len(data.Alternatives) == 0 {
		issues = append(issues, ParseError{
			Line:     baseLine,
			Message:  "consequence matrix has rows but no header naming alternatives",
			Severity: SeverityWarning,
		})
	}
	return data, issues
}

func extractTradeoffs(lines []string) (any, []ParseError) {
	data := &TradeoffsData{}
	subsection := ""
	for _, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.quote != "":
			if data.Rationale == "" {
				data.Rationale = shape.quote
			}
		case (shape.isList || shape.isCheckbox) && subsection == "even swaps":
			text := shape.listText
			if shape.isCheckbox {
				text = shape.checkText
			}
			data.EvenSwaps = append(data.EvenSwaps, text)
		case shape.isOrdered && subsection == "ranking":
			data.Ranking = append(data.Ranking, shape.orderText)
		case shape.isList && subsection == "ranking":
			data.Ranking = append(data.Ranking, shape.listText)
		}
	}
	return data, nil
}

func extractUncertainties(lines []string) (any, []ParseError) {
	data := &UncertaintiesData{}
	subsection := ""
	for _, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.quote != "":
			if data.Outlook == "" {
				data.Outlook = shape.quote
			}
		case (shape.isList || shape.isCheckbox) && subsection == "key uncertainties":
			text := shape.listText
			if shape.isCheckbox {
				text = shape.checkText
			}
			data.Uncertainties = append(data.Uncertainties, text)
		case shape.isCheckbox && subsection == "information gaps":
			data.InformationGaps = append(data.InformationGaps, checklistItem(shape.checkText, shape.checkDone, false))
		case shape.isList && subsection == "information gaps":
			data.InformationGaps = append(data.InformationGaps, checklistItem(shape.listText, false, false))
		}
	}
	return data, nil
}

func extractRiskTolerance(lines []string) (any, []ParseError) {
	data := &RiskToleranceData{}
	for _, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.quote != "":
			if data.Reflection == "" {
				data.Reflection = shape.quote
			}
		case shape.key == "Risk Posture":
			data.Posture = shape.value
		case shape.key == "Maximum Acceptable Loss":
			data.MaxAcceptableLoss = shape.value
		}
	}
	return data, nil
}

func extractLinkedDecisions(lines []string) (any, []ParseError) {
	data := &LinkedDecisionsData{}
	subsection := ""
	for _, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.isCheckbox && subsection == "decisions":
			data.Decisions = append(data.Decisions, checklistItem(shape.checkText, shape.checkDone, true))
		case shape.isList && subsection == "decisions":
			data.Decisions = append(data.Decisions, checklistItem(shape.listText, false, true))
		case (shape.isList || shape.isCheckbox) && subsection == "improvements":
			text := shape.listText
			if shape.isCheckbox {
				text = shape.checkText
			}
			data.Improvements = append(data.Improvements, text)
		}
	}
	return data, nil
}

func extractDecision(lines []string) (any, []ParseError) {
	data := &DecisionData{}
	subsection := ""
	for _, line := range lines {
		shape, ok := classify(line)
		if !ok {
			continue
		}
		switch {
		case shape.subsection != "":
			subsection = shape.subsection
		case shape.quote != "":
			if data.Rationale == "" {
				data.Rationale = shape.quote
			}
		case shape.key == "Choice":
			data.Choice = shape.value
		case (shape.isCheckbox || shape.isList) && subsection == "next steps":
			text := shape.listText
			done := false
			if shape.isCheckbox {
				text = shape.checkText
				done = shape.checkDone
			}
			data.NextSteps = append(data.NextSteps, checklistItem(text, done, false))
		}
	}
	return data, nil
}

type tableRowKind int

const (
	tableRowSkip tableRowKind = iota
	tableRowHeader
	tableRowData
)

// tableCells splits a pipe-table row. Separator rows are skipped; a row whose
// first cell matches headerLabel is the header.
func tableCells(line, headerLabel string) ([]string, tableRowKind) {
	trimmed := strings.Trim(strings.TrimSpace(line), "|")
	parts := strings.Split(trimmed, "|")
	cells := make([]string, 0, len(parts))
	separator := true
	for _, part := range parts {
		cell := strings.TrimSpace(part)
		cells = append(cells, cell)
		if cell != "" && strings.Trim(cell, "-: ") != "" {
			separator = false
		}
	}
	if separator {
		return nil, tableRowSkip
	}
	if len(cells) > 0 && cells[0] == headerLabel {
		return cells, tableRowHeader
	}
	return cells, tableRowData
}

// parseDecoratedInt parses a numeric table cell, tolerating bold markers, a
// leading plus, and a percent suffix. Unparseable cells become zero rather
// than failing the section.
func parseDecoratedInt(cell string) int {
	cleaned := stripDecorations(cell)
	cleaned = strings.TrimSuffix(cleaned, "%")
	cleaned = strings.TrimPrefix(cleaned, "+")
	value, err := strconv.Atoi(strings.TrimSpace(cleaned))
	if err != nil {
		return 0
	}
	return value
}

func stripDecorations(cell string) string {
	cleaned := strings.TrimSpace(cell)
	cleaned = strings.TrimPrefix(cleaned, "**")
	cleaned = strings.TrimSuffix(cleaned, "**")
	return strings.TrimSpace(cleaned)
}

func dataIsEmpty(data any) bool {
	switch d := data.(type) {
	case *ProblemData:
		return d.Statement == "" && d.DecisionMaker == "" && len(d.Constraints) == 0 && len(d.Assumptions) == 0
	case *ObjectivesData:
		return len(d.Fundamental) == 0 && len(d.Means) == 0
	case *AlternativesData:
		return len(d.Candidates) == 0 && len(d.Discarded) == 0
	case *ConsequencesData:
		return d.Summary == "" && len(d.Alternatives) == 0 && len(d.Rows) == 0 && len(d.Totals) == 0
	case *TradeoffsData:
		return d.Rationale == "" && len(d.EvenSwaps) == 0 && len(d.Ranking) == 0
	case *UncertaintiesData:
		return d.Outlook == "" && len(d.Uncertainties) == 0 && len(d.InformationGaps) == 0
	case *RiskToleranceData:
		return d.Posture == "" && d.MaxAcceptableLoss == "" && d.Reflection == ""
	case *LinkedDecisionsData:
		return len(d.Decisions) == 0 && len(d.Improvements) == 0
	case *DecisionData:
		return d.Choice == "" && d.Rationale == "" && len(d.NextSteps) == 0
	}
	return true
}
