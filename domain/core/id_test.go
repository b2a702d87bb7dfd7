package core

import (
	"errors"
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

// TestParseSessionID tests session ID parsing
func TestParseSessionID(t *testing.T) {
	tests := []struct {
		input    string
		expected SessionID
		hasError bool
	}{
		{"valid-id", SessionID("valid-id"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseSessionID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

func TestProjectKeyValidate(t *testing.T) {
	if err := (ProjectKey{UserID: "u1", ProjectID: "p1"}).Validate(); err != nil {
		t.Errorf("Unexpected error for complete key: %v", err)
	}
	err := (ProjectKey{UserID: "u1"}).Validate()
	if !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Expected ErrInvalidSettings for missing project, got %v", err)
	}

	unsafe := []ProjectKey{
		{UserID: "../outside", ProjectID: "p1"},
		{UserID: "u1", ProjectID: ".."},
		{UserID: "u1", ProjectID: "a/b"},
		{UserID: `u\1`, ProjectID: "p1"},
	}
	for _, key := range unsafe {
		if err := key.Validate(); !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("Expected ErrInvalidSettings for %s, got %v", key, err)
		}
	}
	if err := (ProjectKey{UserID: "u1", ProjectID: "q1.v2"}).Validate(); err != nil {
		t.Errorf("Unexpected error for dotted id: %v", err)
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := NewParseError("report.xlsx", cause)

	if !IsParseError(err) {
		t.Error("Expected ParseError to match ErrParse")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected ParseError to unwrap to its cause")
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Source != "report.xlsx" {
		t.Errorf("Expected errors.As to recover the source, got %+v", pe)
	}
}

func TestValidationErr(t *testing.T) {
	if Valid.Err() != nil {
		t.Error("Expected passing validation to convert to nil")
	}
	v := EmptySelection("chart")
	if v.OK {
		t.Error("Expected EmptySelection to fail")
	}
	if !IsEmptySelection(v.Err()) {
		t.Errorf("Expected ErrEmptySelection, got %v", v.Err())
	}
}
