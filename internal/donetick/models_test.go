package donetick

import (
	"errors"
	"strings"
	"testing"
)

func TestChoreCreateValidate_Defaults(t *testing.T) {
	spec := &ChoreCreate{Name: "Take out trash"}

	if err := spec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.FrequencyType != FrequencyOnce {
		t.Errorf("expected default frequency type %q, got %q", FrequencyOnce, spec.FrequencyType)
	}
	if spec.Frequency != 1 {
		t.Errorf("expected default frequency 1, got %d", spec.Frequency)
	}
	if spec.AssignStrategy != StrategyLeastCompleted {
		t.Errorf("expected default strategy %q, got %q", StrategyLeastCompleted, spec.AssignStrategy)
	}
}

func TestChoreCreateValidate_EmptyName(t *testing.T) {
	cases := []string{"", "   ", "\t\n"}
	for _, name := range cases {
		spec := &ChoreCreate{Name: name}
		err := spec.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("name %q: expected ValidationError, got %v", name, err)
		}
	}
}

func TestChoreCreateValidate_NameTooLong(t *testing.T) {
	spec := &ChoreCreate{Name: strings.Repeat("x", 201)}
	if err := spec.Validate(); err == nil {
		t.Error("expected error for 201-char name")
	}
	spec = &ChoreCreate{Name: strings.Repeat("x", 200)}
	if err := spec.Validate(); err != nil {
		t.Errorf("200-char name should be valid, got %v", err)
	}
}

func TestChoreCreateValidate_StripsControlCharacters(t *testing.T) {
	spec := &ChoreCreate{
		Name:        "Take\x00 out\x07 trash",
		Description: "keep\ttabs\nand newlines\x1b[31m",
	}
	if err := spec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Name != "Take out trash" {
		t.Errorf("control chars not stripped from name: %q", spec.Name)
	}
	if spec.Description != "keep\ttabs\nand newlines[31m" {
		t.Errorf("unexpected description: %q", spec.Description)
	}
}

func TestChoreCreateValidate_DueDateFormats(t *testing.T) {
	valid := []string{"2025-11-10", "2025-11-10T09:00:00Z", "2025-11-10T09:00:00+02:00"}
	for _, d := range valid {
		spec := &ChoreCreate{Name: "x", DueDate: d}
		if err := spec.Validate(); err != nil {
			t.Errorf("date %q should be valid: %v", d, err)
		}
	}

	invalid := []string{"next tuesday", "10/11/2025", "2025-13-40"}
	for _, d := range invalid {
		spec := &ChoreCreate{Name: "x", DueDate: d}
		err := spec.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("date %q: expected ValidationError, got %v", d, err)
		}
	}
}

func TestChoreCreateValidate_FrequencyType(t *testing.T) {
	spec := &ChoreCreate{Name: "x", FrequencyType: "WEEKLY"}
	if err := spec.Validate(); err != nil {
		t.Fatalf("case-insensitive frequency type rejected: %v", err)
	}
	if spec.FrequencyType != FrequencyWeekly {
		t.Errorf("expected lowercased %q, got %q", FrequencyWeekly, spec.FrequencyType)
	}

	spec = &ChoreCreate{Name: "x", FrequencyType: "fortnightly"}
	if err := spec.Validate(); err == nil {
		t.Error("expected error for unknown frequency type")
	}
}

func TestChoreCreateValidate_AssignStrategy(t *testing.T) {
	spec := &ChoreCreate{Name: "x", AssignStrategy: "Round_Robin"}
	if err := spec.Validate(); err != nil {
		t.Fatalf("case-insensitive strategy rejected: %v", err)
	}
	if spec.AssignStrategy != StrategyRoundRobin {
		t.Errorf("expected %q, got %q", StrategyRoundRobin, spec.AssignStrategy)
	}

	spec = &ChoreCreate{Name: "x", AssignStrategy: "alphabetical"}
	if err := spec.Validate(); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestChoreCreateValidate_PriorityBounds(t *testing.T) {
	for _, p := range []int{1, 3, 5, 0} {
		spec := &ChoreCreate{Name: "x", Priority: p}
		if err := spec.Validate(); err != nil {
			t.Errorf("priority %d should be valid: %v", p, err)
		}
	}
	for _, p := range []int{-1, 6, 10} {
		spec := &ChoreCreate{Name: "x", Priority: p}
		if err := spec.Validate(); err == nil {
			t.Errorf("priority %d should be rejected", p)
		}
	}
}

func TestChoreUpdateValidate(t *testing.T) {
	empty := &ChoreUpdate{}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for update with no fields")
	}

	name := "  Take out recycling  "
	update := &ChoreUpdate{Name: &name}
	if err := update.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *update.Name != "Take out recycling" {
		t.Errorf("name not trimmed: %q", *update.Name)
	}

	bad := "not a date"
	update = &ChoreUpdate{NextDueDate: &bad}
	if err := update.Validate(); err == nil {
		t.Error("expected error for invalid due date")
	}
}
