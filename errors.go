package embedded

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrConfiguration indicates an invalid mapping declaration.
	ErrConfiguration = errors.New("invalid embedded mapping")

	// ErrColumnCollision indicates two sub-attributes of one record type resolve to the same column.
	ErrColumnCollision = errors.New("column collision")

	// ErrUnknownValueType indicates a class name that was never defined with DefineValue.
	ErrUnknownValueType = errors.New("unknown value type")

	// ErrUnknownAttribute indicates an attribute name that is not registered on the record type.
	ErrUnknownAttribute = errors.New("unknown embedded attribute")

	// ErrTypeMismatch indicates a setter or filter input that is neither a value object nor an attribute map.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrMissingField indicates storage is missing a column required to assemble a value object.
	ErrMissingField = errors.New("missing field")

	// ErrUnsupportedPredicate indicates a scope received a predicate shape it cannot apply.
	ErrUnsupportedPredicate = errors.New("unsupported predicate")

	// ErrNotFound indicates a terminal scope operation matched no record.
	ErrNotFound = errors.New("record not found")
)

// ConfigError represents a mapping registration error.
// It wraps a sentinel error with the record type and attribute being registered.
type ConfigError struct {
	Err       error  // Underlying sentinel error (ErrConfiguration, ErrColumnCollision, ...)
	Record    string // Record type name
	Attribute string // Composite attribute name
	Detail    string // Human readable cause
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error()
	if e.Record != "" && e.Attribute != "" {
		msg = fmt.Sprintf("%s %s.%s", msg, e.Record, e.Attribute)
	} else if e.Attribute != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Attribute)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the sentinel. ErrColumnCollision and ErrUnknownValueType
// configuration errors also match ErrConfiguration.
func (e *ConfigError) Unwrap() []error {
	if e.Err == ErrConfiguration {
		return []error{e.Err}
	}
	return []error{e.Err, ErrConfiguration}
}

// TypeMismatchError reports an input that cannot be read as a value object.
type TypeMismatchError struct {
	Attribute string // Composite attribute name
	Want      string // Declared value type
	Got       string // Received Go type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s for %s: want %s or attribute map, got %s",
		ErrTypeMismatch.Error(), e.Attribute, e.Want, e.Got)
}

func (e *TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// MissingFieldError reports a sub-attribute whose column or value is absent.
type MissingFieldError struct {
	Attribute string // Composite attribute name
	SubAttr   string // Sub-attribute that could not be read
	Column    string // Backing column, empty when the value object lacks the reader
}

func (e *MissingFieldError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s %s.%s (column %s)", ErrMissingField.Error(), e.Attribute, e.SubAttr, e.Column)
	}
	return fmt.Sprintf("%s %s.%s", ErrMissingField.Error(), e.Attribute, e.SubAttr)
}

func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// newConfigError creates a ConfigError for registration failures.
func newConfigError(sentinel error, record, attribute, detail string) error {
	return &ConfigError{
		Err:       sentinel,
		Record:    record,
		Attribute: attribute,
		Detail:    detail,
	}
}

// newTypeMismatchError creates a TypeMismatchError for an unusable input.
func newTypeMismatchError(attribute, want string, got any) error {
	return &TypeMismatchError{
		Attribute: attribute,
		Want:      want,
		Got:       fmt.Sprintf("%T", got),
	}
}
