package document

import (
	"errors"
	"testing"
)

func TestChecksumDeterminism(t *testing.T) {
	a := NewMarkdownContent("# Doc\n")
	b := NewMarkdownContent("# Doc\n")
	if a.Checksum() != b.Checksum() {
		t.Errorf("checksums differ for identical content: %s vs %s", a.Checksum(), b.Checksum())
	}
	if len(a.Checksum()) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a.Checksum()))
	}
	if !a.Equal(b) {
		t.Error("Equal() = false for identical content")
	}
	if a.HasChanged("# Doc\n") {
		t.Error("HasChanged() = true for identical text")
	}
	if !a.HasChanged("# Other\n") {
		t.Error("HasChanged() = false for different text")
	}
}

func TestRestoreContentKeepsPersistedChecksum(t *testing.T) {
	c := RestoreContent("", "abc123")
	if c.Checksum() != "abc123" {
		t.Errorf("Checksum() = %q, want persisted value", c.Checksum())
	}
	if c.Raw() != "" {
		t.Errorf("Raw() = %q, want empty until the blob is loaded", c.Raw())
	}
}

func TestVersion(t *testing.T) {
	if FirstVersion.Next() != 2 {
		t.Errorf("Next() = %d, want 2", FirstVersion.Next())
	}
	if Version(0).Valid() {
		t.Error("Valid() = true for version 0")
	}
	if !Version(7).Valid() {
		t.Error("Valid() = false for version 7")
	}
}

func TestParseSyncSource(t *testing.T) {
	for _, value := range []string{"initial", "component_update", "user_edit", "file_sync"} {
		if _, err := ParseSyncSource(value); err != nil {
			t.Errorf("ParseSyncSource(%q) error = %v", value, err)
		}
	}
	if _, err := ParseSyncSource("webhook"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseSyncSource(webhook) error = %v, want ErrInvalidFormat", err)
	}
}

func TestActorEncodeParse(t *testing.T) {
	user, err := ActorUser("usr_1a2b")
	if err != nil {
		t.Fatalf("ActorUser() error = %v", err)
	}
	tests := []struct {
		actor   Actor
		encoded string
	}{
		{ActorSystem(), "system"},
		{ActorAgent(), "agent"},
		{user, "user:usr_1a2b"},
	}
	for _, tt := range tests {
		if got := tt.actor.Encode(); got != tt.encoded {
			t.Errorf("Encode() = %q, want %q", got, tt.encoded)
		}
		parsed, err := ParseActor(tt.encoded)
		if err != nil {
			t.Fatalf("ParseActor(%q) error = %v", tt.encoded, err)
		}
		if parsed != tt.actor {
			t.Errorf("ParseActor(%q) = %+v, want %+v", tt.encoded, parsed, tt.actor)
		}
	}

	if _, err := ActorUser("  "); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ActorUser(blank) error = %v, want ErrInvalidFormat", err)
	}
	if _, err := ParseActor("user:"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseActor(user:) error = %v, want ErrInvalidFormat", err)
	}
	if _, err := ParseActor("robot"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ParseActor(robot) error = %v, want ErrInvalidFormat", err)
	}
}

func TestComponentNumbering(t *testing.T) {
	components := Components()
	if len(components) != 8 {
		t.Fatalf("Components() = %d entries, want 8", len(components))
	}
	for i, component := range components {
		if component.Number() != i+1 {
			t.Errorf("%s.Number() = %d, want %d", component, component.Number(), i+1)
		}
		at, ok := ComponentAt(i + 1)
		if !ok || at != component {
			t.Errorf("ComponentAt(%d) = %s, want %s", i+1, at, component)
		}
	}
	if _, ok := ComponentAt(9); ok {
		t.Error("ComponentAt(9) should not resolve")
	}
	if ComponentDecision.Number() != 0 {
		t.Errorf("decision Number() = %d, want 0", ComponentDecision.Number())
	}

	components[0] = ComponentDecision
	if again := Components(); again[0] != ComponentProblem {
		t.Errorf("Components()[0] = %s after caller mutation, want %s", again[0], ComponentProblem)
	}
}

func TestComponentCodes(t *testing.T) {
	codes := map[Component]string{
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
	for component, code := range codes {
		if component.Code() != code {
			t.Errorf("%s.Code() = %q, want %q", component, component.Code(), code)
		}
		back, err := ComponentFromCode(code)
		if err != nil || back != component {
			t.Errorf("ComponentFromCode(%q) = %s, %v", code, back, err)
		}
	}
	if _, err := ComponentFromCode("Z"); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("ComponentFromCode(Z) error = %v, want ErrInvalidFormat", err)
	}
}
