// Package markdown converts structured decision-cycle state to markdown and
// back. The wire format is a fixed numbered-heading schema (`## 1.` .. `## 8.`)
// with `###` subsections routing list and table data; it is a de facto
// contract, so the generator is deterministic and the parser recovers
// structured data section by section without failing the whole document.
package markdown

import (
	"choicesherpa/api/internal/document"
)

// EmptyMarker is the placeholder body of a section that has not been worked
// yet. Its presence always parses to an empty-but-successful section.
const EmptyMarker = "_Not yet started._"

// ChecklistItem is one checkbox line. Note holds a trailing parenthetical
// when the owning subsection splits it off.
type ChecklistItem struct {
	Text string
	Note string
	Done bool
}

// ProblemData is section 1.
type ProblemData struct {
	Statement         string
	DecisionMaker     string
	DecisionMakerRole string
	Constraints       []string
	Assumptions       []string
}

// Objective is one row of the fundamental objectives table.
type Objective struct {
	Name    string
	Measure string
	Weight  int
}

// ObjectivesData is section 2.
type ObjectivesData struct {
	Fundamental []Objective
	Means       []string
}

// AlternativesData is section 3. Candidates are checkboxes (checked =
// shortlisted) with an optional parenthetical note.
type AlternativesData struct {
	Candidates []ChecklistItem
	Discarded  []string
}

// MatrixRow is one criterion row of the Pugh consequence matrix, scored per
// alternative in column order.
type MatrixRow struct {
	Criterion string
	Scores    []int
}

// ConsequencesData is section 4.
type ConsequencesData struct {
	Summary      string
	Alternatives []string
	Rows         []MatrixRow
	Totals       []int
}

// TradeoffsData is section 5.
type TradeoffsData struct {
	Rationale string
	EvenSwaps []string
	Ranking   []string
}

// UncertaintiesData is section 6.
type UncertaintiesData struct {
	Outlook         string
	Uncertainties   []string
	InformationGaps []ChecklistItem
}

// RiskToleranceData is section 7.
type RiskToleranceData struct {
	Posture           string
	MaxAcceptableLoss string
	Reflection        string
}

// LinkedDecisionsData is section 8. Decisions carry a parenthetical note
// describing the dependency; Improvements are process notes.
type LinkedDecisionsData struct {
	Decisions    []ChecklistItem
	Improvements []string
}

// DecisionData is the optional ninth component, generated and parsed only in
// isolation.
type DecisionData struct {
	Choice    string
	Rationale string
	NextSteps []ChecklistItem
}

// CycleState is the structured view of one decision cycle. A nil component
// has not been started.
type CycleState struct {
	Problem         *ProblemData
	Objectives      *ObjectivesData
	Alternatives    *AlternativesData
	Consequences    *ConsequencesData
	Tradeoffs       *TradeoffsData
	Uncertainties   *UncertaintiesData
	RiskTolerance   *RiskToleranceData
	LinkedDecisions *LinkedDecisionsData
	Decision        *DecisionData
}

// Mode selects the generation profile.
type Mode string

const (
	ModeFull    Mode = "full"
	ModeSummary Mode = "summary"
	ModeExport  Mode = "export"
)

// GenerateOptions control document generation. Identical state and options
// always produce byte-identical markdown.
type GenerateOptions struct {
	Mode Mode
	// IncludeMetadata renders the status/quality blockquote under the title.
	IncludeMetadata bool
	Status          string
	QualityScore    int
	// IncludeEmptySections renders placeholder sections for nil components.
	IncludeEmptySections bool
	// IncludeVersionInfo appends a version footer.
	IncludeVersionInfo bool
	Version            document.Version
}

func DefaultOptions() GenerateOptions {
	return GenerateOptions{
		Mode:                 ModeFull,
		IncludeEmptySections: true,
	}
}

// Severity distinguishes recoverable parse issues from unusable sections.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ParseError is one inline parse issue. Warning means best-effort data was
// still extracted; Error means the section could not be interpreted.
type ParseError struct {
	Line     int
	Column   int
	Message  string
	Severity Severity
}

// SectionBoundary is the half-open-inclusive line range of one numbered
// section, derived purely from `## N.` headings.
type SectionBoundary struct {
	Component document.Component
	StartLine int
	EndLine   int
	Heading   string
}

// ParsedSection is the outcome of parsing one section. Data holds the typed
// section struct (e.g. *ObjectivesData) and is nil when the section was
// unusable. Data plus warnings is a valid combination.
type ParsedSection struct {
	Component document.Component
	Heading   string
	RawText   string
	Data      any
	Errors    []ParseError
}

// Successful reports whether structured data was extracted with no hard
// errors. Warnings do not count against success.
func (s ParsedSection) Successful() bool {
	if s.Data == nil {
		return false
	}
	for _, issue := range s.Errors {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// Metadata is document-level information recovered outside the numbered
// sections.
type Metadata struct {
	Title        string
	Status       string
	QualityScore *int
}

// ParseResult is the full-document parse outcome. Section issues stay inline;
// one unusable section never aborts the rest.
type ParseResult struct {
	Metadata Metadata
	Sections []ParsedSection
}

// Section returns the parsed section for a component, if present.
func (r ParseResult) Section(c document.Component) (ParsedSection, bool) {
	for _, section := range r.Sections {
		if section.Component == c {
			return section, true
		}
	}
	return ParsedSection{}, false
}

// Errors collects all hard section errors.
func (r ParseResult) Errors() []ParseError {
	return r.collect(SeverityError)
}

// Warnings collects all section warnings.
func (r ParseResult) Warnings() []ParseError {
	return r.collect(SeverityWarning)
}

func (r ParseResult) collect(severity Severity) []ParseError {
	var out []ParseError
	for _, section := range r.Sections {
		for _, issue := range section.Errors {
			if issue.Severity == severity {
				out = append(out, issue)
			}
		}
	}
	return out
}
