package markdown

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"choicesherpa/api/internal/document"
)

// ErrGeneration is returned when component data fails schema validation for
// its target section.
var ErrGeneration = errors.New("markdown generation failed")

// Generate renders a full decision document. Output is deterministic:
// identical state and options produce byte-identical markdown, which the
// checksum-based change detection downstream depends on.
func Generate(sessionTitle string, state CycleState, opts GenerateOptions) (string, error) {
	var blocks []string

	blocks = append(blocks, "# "+strings.TrimSpace(sessionTitle))

	if opts.IncludeMetadata && opts.Mode != ModeExport {
		blocks = append(blocks, fmt.Sprintf("> Status: %s | Quality Score: %d", opts.Status, opts.QualityScore))
	}

	for _, component := range document.Components() {
		data := state.componentData(component)
		if data == nil {
			if opts.Mode == ModeExport || !opts.IncludeEmptySections {
				continue
			}
			blocks = append(blocks, sectionHeading(component), EmptyMarker)
			continue
		}
		section, err := renderSection(component, data, opts.Mode)
		if err != nil {
			return "", err
		}
		blocks = append(blocks, section...)
	}

	if opts.IncludeVersionInfo {
		blocks = append(blocks, "---", fmt.Sprintf("*Version %d*", opts.Version))
	}

	return strings.Join(blocks, "\n\n") + "\n", nil
}

// GenerateSection renders one section in isolation using the same fragment
// full generation uses, so partial regeneration never diverges in formatting.
func GenerateSection(component document.Component, state CycleState) (string, error) {
	data := state.componentData(component)
	if data == nil {
		return strings.Join([]string{sectionHeading(component), EmptyMarker}, "\n\n") + "\n", nil
	}
	blocks, err := renderSection(component, data, ModeFull)
	if err != nil {
		return "", err
	}
	return strings.Join(blocks, "\n\n") + "\n", nil
}

func (s CycleState) componentData(c document.Component) any {
	switch c {
	case document.ComponentProblem:
		if s.Problem != nil {
			return s.Problem
		}
	case document.ComponentObjectives:
		if s.Objectives != nil {
			return s.Objectives
		}
	case document.ComponentAlternatives:
		if s.Alternatives != nil {
			return s.Alternatives
		}
	case document.ComponentConsequences:
		if s.Consequences != nil {
			return s.Consequences
		}
	case document.ComponentTradeoffs:
		if s.Tradeoffs != nil {
			return s.Tradeoffs
		}
	case document.ComponentUncertainties:
		if s.Uncertainties != nil {
			return s.Uncertainties
		}
	case document.ComponentRiskTolerance:
		if s.RiskTolerance != nil {
			return s.RiskTolerance
		}
	case document.ComponentLinkedDecisions:
		if s.LinkedDecisions != nil {
			return s.LinkedDecisions
		}
	case document.ComponentDecision:
		if s.Decision != nil {
			return s.Decision
		}
	}
	return nil
}

func sectionHeading(c document.Component) string {
	if c == document.ComponentDecision {
		return "## " + c.Title()
	}
	return fmt.Sprintf("## %d. %s", c.Number(), c.Title())
}

func renderSection(component document.Component, data any, mode Mode) ([]string, error) {
	blocks := []string{sectionHeading(component)}

	var body []string
	var err error
	switch d := data.(type) {
	case *ProblemData:
		body, err = renderProblem(d, mode)
	case *ObjectivesData:
		body, err = renderObjectives(d, mode)
	case *AlternativesData:
		body, err = renderAlternatives(d, mode)
	case *ConsequencesData:
		body, err = renderConsequences(d, mode)
	case *TradeoffsData:
		body, err = renderTradeoffs(d, mode)
	case *UncertaintiesData:
		body, err = renderUncertainties(d, mode)
	case *RiskToleranceData:
		body, err = renderRiskTolerance(d, mode)
	case *LinkedDecisionsData:
		body, err = renderLinkedDecisions(d, mode)
	case *DecisionData:
		body, err = renderDecision(d, mode)
	default:
		return nil, fmt.Errorf("%w: no renderer for component %q", ErrGeneration, component)
	}
	if err != nil {
		return nil, fmt.Errorf("section %q: %w", component, err)
	}
	if len(body) == 0 {
		body = []string{EmptyMarker}
	}
	return append(blocks, body...), nil
}

func renderProblem(d *ProblemData, mode Mode) ([]string, error) {
	var blocks []string
	if d.Statement != "" {
		blocks = append(blocks, "> "+d.Statement)
	}
	if d.DecisionMakerRole != "" && d.DecisionMaker == "" {
		return nil, fmt.Errorf("%w: decision maker role without a name", ErrGeneration)
	}
	if d.DecisionMaker != "" {
		maker := d.DecisionMaker
		if d.DecisionMakerRole != "" {
			maker = fmt.Sprintf("%s (%s)", d.DecisionMaker, d.DecisionMakerRole)
		}
		blocks = append(blocks, "**Decision Maker:** "+maker)
	}
	if mode == ModeSummary {
		return blocks, nil
	}
	blocks = appendList(blocks, "Constraints", d.Constraints)
	blocks = appendList(blocks, "Assumptions", d.Assumptions)
	return blocks, nil
}

func renderObjectives(d *ObjectivesData, mode Mode) ([]string, error) {
	var blocks []string
	if mode != ModeSummary && len(d.Fundamental) > 0 {
		rows := []string{
			"| Objective | Measure | Weight |",
			"| --- | --- | --- |",
		}
		for _, objective := range d.Fundamental {
			if strings.TrimSpace(objective.Name) == "" {
				return nil, fmt.Errorf("%w: objective with empty name", ErrGeneration)
			}
			rows = append(rows, fmt.Sprintf("| %s | %s | %d |", objective.Name, objective.Measure, objective.Weight))
		}
		blocks = append(blocks, "### Fundamental Objectives", strings.Join(rows, "\n"))
	}
	if mode == ModeSummary {
		blocks = append(blocks, fmt.Sprintf("> %d fundamental objectives, %d means objectives.", len(d.Fundamental), len(d.Means)))
		return blocks, nil
	}
	blocks = appendList(blocks, "Means Objectives", d.Means)
	return blocks, nil
}

func renderAlternatives(d *AlternativesData, mode Mode) ([]string, error) {
	var blocks []string
	if mode == ModeSummary {
		return []string{fmt.Sprintf("> %d candidate alternatives.", len(d.Candidates))}, nil
	}
	if len(d.Candidates) > 0 {
		lines, err := checklistLines(d.Candidates, true)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, "### Candidates", strings.Join(lines, "\n"))
	}
	blocks = appendList(blocks, "Discarded", d.Discarded)
	return blocks, nil
}

func renderConsequences(d *ConsequencesData, mode Mode) ([]string, error) {
	var blocks []string
	if d.Summary != "" {
		blocks = append(blocks, "> "+d.Summary)
	}
	if mode == ModeSummary {
		return blocks, nil
	}
	if len(d.Rows) > 0 || len(d.Totals) > 0 {
		if len(d.Alternatives) == 0 {
			return nil, fmt.Errorf("%w: consequence matrix without alternative columns", ErrGeneration)
		}
		header := append([]string{"Criterion"}, d.Alternatives...)
		rows := []string{tableRow(header), tableSeparator(len(header))}
		for _, row := range d.Rows {
			if len(row.Scores) != len(d.Alternatives) {
				return nil, fmt.Errorf("%w: matrix row %q has %d scores for %d alternatives", ErrGeneration, row.Criterion, len(row.Scores), len(d.Alternatives))
			}
			cells := []string{row.Criterion}
			for _, score := range row.Scores {
				cells = append(cells, formatSigned(score))
			}
			rows = append(rows, tableRow(cells))
		}
		if len(d.Totals) > 0 {
			if len(d.Totals) != len(d.Alternatives) {
				return nil, fmt.Errorf("%w: matrix totals have %d values for %d alternatives", ErrGeneration, len(d.Totals), len(d.Alternatives))
			}
			cells := []string{"**Total**"}
			for _, total := range d.Totals {
				cells = append(cells, "**"+formatSigned(total)+"**")
			}
			rows = append(rows, tableRow(cells))
		}
		blocks = append(blocks, "### Consequence Matrix", strings.Join(rows, "\n"))
	}
	return blocks, nil
}

func renderTradeoffs(d *TradeoffsData, mode Mode) ([]string, error) {
	var blocks []string
	if d.Rationale != "" {
		blocks = append(blocks, "> "+d.Rationale)
	}
	if mode == ModeSummary {
		return blocks, nil
	}
	blocks = appendList(blocks, "Even Swaps", d.EvenSwaps)
	if len(d.Ranking) > 0 {
		lines := make([]string, 0, len(d.Ranking))
		for i, entry := range d.Ranking {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, entry))
		}
		blocks = append(blocks, "### Ranking", strings.Join(lines, "\n"))
	}
	return blocks, nil
}

func renderUncertainties(d *UncertaintiesData, mode Mode) ([]string, error) {
	var blocks []string
	if d.Outlook != "" {
		blocks = append(blocks, "> "+d.Outlook)
	}
	if mode == ModeSummary {
		return blocks, nil
	}
	blocks = appendList(blocks, "Key Uncertainties", d.Uncertainties)
	if len(d.InformationGaps) > 0 {
		lines, err := checklistLines(d.InformationGaps, false)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, "### Information Gaps", strings.Join(lines, "\n"))
	}
	return blocks, nil
}

func renderRiskTolerance(d *RiskToleranceData, mode Mode) ([]string, error) {
	var kv []string
	if d.Posture != "" {
		kv = append(kv, "**Risk Posture:** "+d.Posture)
	}
	if d.MaxAcceptableLoss != "" {
		kv = append(kv, "**Maximum Acceptable Loss:** "+d.MaxAcceptableLoss)
	}
	var blocks []string
	if len(kv) > 0 {
		blocks = append(blocks, strings.Join(kv, "\n"))
	}
	if mode != ModeSummary && d.Reflection != "" {
		blocks = append(blocks, "> "+d.Reflection)
	}
	return blocks, nil
}

func renderLinkedDecisions(d *LinkedDecisionsData, mode Mode) ([]string, error) {
	if mode == ModeSummary {
		return []string{fmt.Sprintf("> %d linked decisions.", len(d.Decisions))}, nil
	}
	var blocks []string
	if len(d.Decisions) > 0 {
		lines, err := checklistLines(d.Decisions, true)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, "### Decisions", strings.Join(lines, "\n"))
	}
	blocks = appendList(blocks, "Improvements", d.Improvements)
	return blocks, nil
}

func renderDecision(d *DecisionData, mode Mode) ([]string, error) {
	var blocks []string
	if d.Choice != "" {
		blocks = append(blocks, "**Choice:** "+d.Choice)
	}
	if d.Rationale != "" {
		blocks = append(blocks, "> "+d.Rationale)
	}
	if mode == ModeSummary {
		return blocks, nil
	}
	if len(d.NextSteps) > 0 {
		lines, err := checklistLines(d.NextSteps, false)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, "### Next Steps", strings.Join(lines, "\n"))
	}
	return blocks, nil
}

func appendList(blocks []string, subsection string, items []string) []string {
	if len(items) == 0 {
		return blocks
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return append(blocks, "### "+subsection, strings.Join(lines, "\n"))
}

func checklistLines(items []ChecklistItem, withNotes bool) ([]string, error) {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			return nil, fmt.Errorf("%w: checklist item with empty text", ErrGeneration)
		}
		mark := " "
		if item.Done {
			mark = "x"
		}
		text := item.Text
		if withNotes && item.Note != "" {
			text = fmt.Sprintf("%s (%s)", item.Text, item.Note)
		}
		lines = append(lines, fmt.Sprintf("- [%s] %s", mark, text))
	}
	return lines, nil
}

func tableRow(cells []string) string {
	return "| " + strings.Join(cells, " | ") + " |"
}

func tableSeparator(columns int) string {
	cells := make([]string, columns)
	for i := range cells {
		cells[i] = "---"
	}
	return tableRow(cells)
}

func formatSigned(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
