package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrProjectNotFound = fmt.Errorf("%w: project", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// Input errors
	ErrParse           = errors.New("spreadsheet could not be decoded")
	ErrEmptySelection  = errors.New("no columns selected")
	ErrUnknownSlot     = errors.New("no chart registered for slot")
	ErrInvalidKind     = errors.New("unsupported chart kind")
	ErrInvalidTheme    = errors.New("unknown color theme")
	ErrInvalidSettings = errors.New("invalid chart settings")
)

// ParseError reports a spreadsheet that could not be decoded as tabular data.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse %s: %v", e.Source, ErrParse)
	}
	return fmt.Sprintf("parse %s: %v: %v", e.Source, ErrParse, e.Err)
}

// Unwrap exposes both the sentinel and the underlying decoder error.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// NewParseError creates a ParseError for the named source.
func NewParseError(source string, err error) *ParseError {
	return &ParseError{Source: source, Err: err}
}

// Validation is a non-exceptional result for user-correctable input, such as a
// request to chart zero columns. Callers prompt the user when OK is false.
type Validation struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Valid is the passing validation result.
var Valid = Validation{OK: true}

// EmptySelection is the validation result for operations invoked with no columns.
func EmptySelection(what string) Validation {
	return Validation{Reason: fmt.Sprintf("select at least one column to %s", what)}
}

// Err converts a failed validation into an error wrapping ErrEmptySelection.
func (v Validation) Err() error {
	if v.OK {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrEmptySelection, v.Reason)
}

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewUnknownSlotError(slot string) error {
	return fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
}

func NewInvalidKindError(kind string) error {
	return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsParseError(err error) bool {
	return errors.Is(err, ErrParse)
}

func IsEmptySelection(err error) bool {
	return errors.Is(err, ErrEmptySelection)
}

func IsUnknownSlot(err error) bool {
	return errors.Is(err, ErrUnknownSlot)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrInvalidTheme) ||
		errors.Is(err, ErrInvalidSettings)
}
