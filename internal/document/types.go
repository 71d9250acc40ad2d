// Package document holds the decision document aggregate and its value types:
// checksum-tracked markdown content, monotonic versions, sync provenance, and
// the PrOACT component enumeration used for branch points.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrVersionConflict is returned when an optimistic version check fails.
	ErrVersionConflict = errors.New("version conflict")
	// ErrInvalidFormat is returned for malformed persisted enum or actor strings.
	ErrInvalidFormat = errors.New("invalid format")
)

// MarkdownContent is an immutable-until-replaced markdown blob whose checksum
// is always computed together with the raw text. Equality is defined by
// checksum, which makes no-op sync detection a string compare.
type MarkdownContent struct {
	raw      string
	checksum string
}

func NewMarkdownContent(raw string) MarkdownContent {
	return MarkdownContent{raw: raw, checksum: Checksum(raw)}
}

// RestoreContent rehydrates content from persisted fields without recomputing
// the digest. raw may be empty when the blob has not been loaded yet.
func RestoreContent(raw, checksum string) MarkdownContent {
	return MarkdownContent{raw: raw, checksum: checksum}
}

func (c MarkdownContent) Raw() string      { return c.raw }
func (c MarkdownContent) Checksum() string { return c.checksum }
func (c MarkdownContent) Size() int64      { return int64(len(c.raw)) }

// Update replaces raw text and checksum as a unit.
func (c MarkdownContent) Update(raw string) MarkdownContent {
	return NewMarkdownContent(raw)
}

// HasChanged reports whether candidate text differs from the stored content.
func (c MarkdownContent) HasChanged(candidate string) bool {
	return c.checksum != Checksum(candidate)
}

func (c MarkdownContent) Equal(other MarkdownContent) bool {
	return c.checksum == other.checksum
}

// Checksum returns the hex SHA-256 digest of raw.
func Checksum(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Version is a strictly monotonically increasing revision number starting at 1.
// It doubles as the optimistic-concurrency token.
type Version int

const FirstVersion Version = 1

func (v Version) Next() Version { return v + 1 }

func (v Version) Valid() bool { return v >= FirstVersion }

// SyncSource tags why the current document version exists.
type SyncSource string

const (
	SourceInitial         SyncSource = "initial"
	SourceComponentUpdate SyncSource = "component_update"
	SourceUserEdit        SyncSource = "user_edit"
	SourceFileSync        SyncSource = "file_sync"
)

func ParseSyncSource(value string) (SyncSource, error) {
	switch SyncSource(value) {
	case SourceInitial, SourceComponentUpdate, SourceUserEdit, SourceFileSync:
		return SyncSource(value), nil
	}
	return "", fmt.Errorf("%w: sync source %q", ErrInvalidFormat, value)
}

type actorKind string

const (
	actorSystem actorKind = "system"
	actorAgent  actorKind = "agent"
	actorUser   actorKind = "user"
)

// Actor identifies who performed the last mutation. The user variant carries
// an identity; a user actor without one is a format error, never a default.
type Actor struct {
	kind   actorKind
	userID string
}

func ActorSystem() Actor { return Actor{kind: actorSystem} }
func ActorAgent() Actor  { return Actor{kind: actorAgent} }

func ActorUser(userID string) (Actor, error) {
	if strings.TrimSpace(userID) == "" {
		return Actor{}, fmt.Errorf("%w: user actor requires an id", ErrInvalidFormat)
	}
	return Actor{kind: actorUser, userID: userID}, nil
}

func (a Actor) IsUser() bool   { return a.kind == actorUser }
func (a Actor) IsAgent() bool  { return a.kind == actorAgent }
func (a Actor) IsSystem() bool { return a.kind == actorSystem }
func (a Actor) UserID() string { return a.userID }

// Encode renders the actor for persistence: "system", "agent", or "user:<id>".
func (a Actor) Encode() string {
	if a.kind == actorUser {
		return string(actorUser) + ":" + a.userID
	}
	if a.kind == "" {
		return string(actorSystem)
	}
	return string(a.kind)
}

func ParseActor(value string) (Actor, error) {
	switch {
	case value == string(actorSystem):
		return ActorSystem(), nil
	case value == string(actorAgent):
		return ActorAgent(), nil
	case strings.HasPrefix(value, string(actorUser)+":"):
		return ActorUser(strings.TrimPrefix(value, string(actorUser)+":"))
	}
	return Actor{}, fmt.Errorf("%w: actor %q", ErrInvalidFormat, value)
}

// Component identifies one of the eight PrOACT sections of a decision
// document, plus the optional ninth decision component. Each maps to a
// single-letter code used in persisted branch-point tags.
type Component string

const (
	ComponentProblem         Component = "problem"
	ComponentObjectives      Component = "objectives"
	ComponentAlternatives    Component = "alternatives"
	ComponentConsequences    Component = "consequences"
	ComponentTradeoffs       Component = "tradeoffs"
	ComponentUncertainties   Component = "uncertainties"
	ComponentRiskTolerance   Component = "risk_tolerance"
	ComponentLinkedDecisions Component = "linked_decisions"
	// ComponentDecision is the optional final component. It is never a
	// numbered section of a full document.
	ComponentDecision Component = "decision"
)

var componentOrder = [...]Component{
	ComponentProblem,
	ComponentObjectives,
	ComponentAlternatives,
	ComponentConsequences,
	ComponentTradeoffs,
	ComponentUncertainties,
	ComponentRiskTolerance,
	ComponentLinkedDecisions,
}

var componentCodes = map[Component]string{
	ComponentProblem:         "P",
	ComponentObjectives:      "O",
	ComponentAlternatives:    "A",
	ComponentConsequences:    "C",
	ComponentTradeoffs:       "T",
	ComponentUncertainties:   "U",
	ComponentRiskTolerance:   "R",
	ComponentLinkedDecisions: "L",
	ComponentDecision:        "D",
}

var componentTitles = map[Component]string{
	ComponentProblem:         "Problem Statement",
	ComponentObjectives:      "Objectives",
	ComponentAlternatives:    "Alternatives",
	ComponentConsequences:    "Consequences",
	ComponentTradeoffs:       "Trade-offs",
	ComponentUncertainties:   "Uncertainties",
	ComponentRiskTolerance:   "Risk Tolerance",
	ComponentLinkedDecisions: "Linked Decisions",
	ComponentDecision:        "Decision",
}

// Components returns the eight numbered components in canonical order.
func Components() []Component {
	out := make([]Component, len(componentOrder))
	copy(out, componentOrder[:])
	return out
}

// ComponentAt maps a section number 1..8 to its component.
func ComponentAt(number int) (Component, bool) {
	if number < 1 || number > len(componentOrder) {
		return "", false
	}
	return componentOrder[number-1], true
}

// Number returns the canonical section number 1..8, or 0 for the optional
// decision component.
func (c Component) Number() int {
	for i, component := range componentOrder {
		if component == c {
			return i + 1
		}
	}
	return 0
}

func (c Component) Title() string { return componentTitles[c] }

// Code returns the single-letter persistence code for the component.
func (c Component) Code() string { return componentCodes[c] }

func (c Component) Valid() bool {
	_, ok := componentCodes[c]
	return ok
}

// ComponentFromCode resolves a single-letter branch-point code. Unknown codes
// are a format error, never defaulted.
func ComponentFromCode(code string) (Component, error) {
	for component, known := range componentCodes {
		if known == code {
			return component, nil
		}
	}
	return "", fmt.Errorf("%w: component code %q", ErrInvalidFormat, code)
}
