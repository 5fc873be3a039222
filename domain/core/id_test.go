package core

import (
	"errors"
	"strings"
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestNewHandlePrefix(t *testing.T) {
	h := NewHandle("merged")
	if !strings.HasPrefix(h.String(), "merged_") {
		t.Errorf("Expected merged_ prefix, got %s", h)
	}
	if NewHandle("upload") == NewHandle("upload") {
		t.Error("Expected distinct handles")
	}
	if strings.Contains(NewHandle("").String(), "_") {
		t.Error("Empty prefix should not produce a leading underscore")
	}
}

// TestParseHandle tests handle parsing
func TestParseHandle(t *testing.T) {
	tests := []struct {
		input    string
		expected Handle
		hasError bool
	}{
		{"upload_123", Handle("upload_123"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseHandle(test.input)
		if test.hasError && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Expected invalid input error for '%s', got %v", test.input, err)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestMissingColumnErrorNamesCandidates(t *testing.T) {
	err := NewMissingColumnError("date", []string{"date", "day"})
	if !errors.Is(err, ErrMissingColumn) || !IsPreconditionError(err) {
		t.Fatalf("Expected missing column error, got %v", err)
	}
	if !strings.Contains(err.Error(), "[date day]") {
		t.Errorf("Expected candidates in message, got %q", err.Error())
	}
}
