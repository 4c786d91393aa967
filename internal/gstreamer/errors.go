package gstreamer

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConstruction is matched by every element construction failure.
	ErrConstruction = errors.New("element construction failed")

	// ErrTransition is matched by every failed state change.
	ErrTransition = errors.New("state change failed")

	// ErrInputType is matched when a lookup receives a value outside its domain.
	ErrInputType = errors.New("invalid input type")

	// ErrProperty is matched by property read/write failures.
	ErrProperty = errors.New("property access failed")

	// ErrInvalidState is wrapped when a state code is not a concrete state.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound is returned when a named element or type does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when an element name is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// ErrorType classifies an ElementError.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeConstruction
	ErrorTypeTransition
	ErrorTypeInputType
	ErrorTypeProperty
)

// String returns the string representation of ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeConstruction:
		return "Construction"
	case ErrorTypeTransition:
		return "Transition"
	case ErrorTypeInputType:
		return "InputType"
	case ErrorTypeProperty:
		return "Property"
	default:
		return "Unknown"
	}
}

func (et ErrorType) sentinel() error {
	switch et {
	case ErrorTypeConstruction:
		return ErrConstruction
	case ErrorTypeTransition:
		return ErrTransition
	case ErrorTypeInputType:
		return ErrInputType
	case ErrorTypeProperty:
		return ErrProperty
	default:
		return nil
	}
}

// ElementError is the error type returned by element operations. It carries
// enough context to be logged or reported without the element at hand.
type ElementError struct {
	Type      ErrorType
	Element   string
	Operation string
	Code      int
	Message   string
	Debug     string
	Cause     error
	Timestamp time.Time
}

// Error implements the error interface
func (e *ElementError) Error() string {
	prefix := "[" + e.Type.String() + "]"
	if e.Element != "" {
		prefix += " " + e.Element
	}
	if e.Operation != "" {
		prefix += " " + e.Operation
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause error
func (e *ElementError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel error of the error's type.
func (e *ElementError) Is(target error) bool {
	sentinel := e.Type.sentinel()
	return sentinel != nil && target == sentinel
}

func newConstructionError(typeName, alias, message string, cause error) *ElementError {
	return &ElementError{
		Type:      ErrorTypeConstruction,
		Element:   alias,
		Operation: "construct(" + typeName + ")",
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

func newInputTypeError(value any) *ElementError {
	return &ElementError{
		Type:      ErrorTypeInputType,
		Operation: "state-name",
		Message:   fmt.Sprintf("state code must be an integer, got %T", value),
		Timestamp: time.Now(),
	}
}

func newPropertyError(element, property, message string, cause error) *ElementError {
	return &ElementError{
		Type:      ErrorTypeProperty,
		Element:   element,
		Operation: "property(" + property + ")",
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// DomainCore is the only error domain elements post.
const DomainCore = "gst-core-error-quark"

// GError is the error payload delivered with an error notification.
type GError struct {
	Domain  string `json:"domain"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (g *GError) Error() string {
	return fmt.Sprintf("%s (%d): %s", g.Domain, g.Code, g.Message)
}
