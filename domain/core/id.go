package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	SessionID ID
	UserID    ID
	ProjectID ID
)

// String conversions for domain IDs
func (id SessionID) String() string { return ID(id).String() }
func (id UserID) String() string    { return ID(id).String() }
func (id ProjectID) String() string { return ID(id).String() }

// NewSessionID creates a fresh workspace session identifier
func NewSessionID() SessionID {
	return SessionID(NewID())
}

// NewProjectID creates a fresh project identifier
func NewProjectID() ProjectID {
	return ProjectID(NewID())
}

// ParseSessionID parses a string into SessionID
func ParseSessionID(s string) (SessionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	return SessionID(s), nil
}

// ParseUserID parses a string into UserID
func ParseUserID(s string) (UserID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("user ID cannot be empty")
	}
	return UserID(s), nil
}

// ParseProjectID parses a string into ProjectID
func ParseProjectID(s string) (ProjectID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("project ID cannot be empty")
	}
	return ProjectID(s), nil
}

// ProjectKey addresses one user's project in the settings store. Storage adapters
// resolve it through an explicit index, never by matching names.
type ProjectKey struct {
	UserID    UserID    `json:"user_id" db:"user_id"`
	ProjectID ProjectID `json:"project_id" db:"project_id"`
}

// Validate checks that both halves of the key are present and usable as a
// single path segment
func (k ProjectKey) Validate() error {
	if err := validateSegment("user_id", string(k.UserID)); err != nil {
		return err
	}
	return validateSegment("project_id", string(k.ProjectID))
}

func validateSegment(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return NewValidationError(field, "required")
	}
	if value == "." || value == ".." || strings.ContainsAny(value, `/\`+"\x00") {
		return NewValidationError(field, "must not contain path separators or dot segments")
	}
	return nil
}

func (k ProjectKey) String() string {
	return fmt.Sprintf("%s/%s", k.UserID, k.ProjectID)
}

// NewValidationError reports a malformed field
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidSettings, field, reason)
}
