package fmi

import (
	"fmt"
	"strings"
)

// DuplicateNameError is returned when a variable name is registered twice.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("variable %q: name already registered", e.Name)
}

// InvalidAttributeCombinationError is returned when a declaration breaks an
// attribute rule of the target standard.
type InvalidAttributeCombinationError struct {
	Name   string
	Reason string
}

func (e *InvalidAttributeCombinationError) Error() string {
	return fmt.Sprintf("variable %q: invalid attributes: %s", e.Name, e.Reason)
}

// DanglingLink names one derivative or dimension reference that does not
// resolve, or an array start whose length disagrees with a referenced extent.
type DanglingLink struct {
	Name   string
	Field  string
	Target ValueReference
	Reason string
}

// DanglingReferenceError lists every unresolved link found by ValidateLinks.
type DanglingReferenceError struct {
	Links []DanglingLink
}

func (e *DanglingReferenceError) Error() string {
	parts := make([]string, 0, len(e.Links))
	for _, l := range e.Links {
		parts = append(parts, fmt.Sprintf("variable %q: %s -> %d: %s", l.Name, l.Field, l.Target, l.Reason))
	}
	return "dangling references:\n- " + strings.Join(parts, "\n- ")
}

// UnknownVariableError is returned for lookups by a name or reference that is not registered.
// Exactly one of Name or Reference is meaningful, as flagged by ByName.
type UnknownVariableError struct {
	Name      string
	Reference ValueReference
	ByName    bool
}

func (e *UnknownVariableError) Error() string {
	if e.ByName {
		return fmt.Sprintf("unknown variable %q", e.Name)
	}
	return fmt.Sprintf("unknown value reference %d", e.Reference)
}

// TypeMismatchError is returned when a value or accessor does not match a variable's declared type.
type TypeMismatchError struct {
	Name     string
	Expected ValueType
	Got      string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("variable %q: type mismatch: expected %s, got %s", e.Name, e.Expected, e.Got)
}

// ReferenceAlreadyAssignedError is returned when the same declaration is registered twice.
type ReferenceAlreadyAssignedError struct {
	Name      string
	Reference ValueReference
}

func (e *ReferenceAlreadyAssignedError) Error() string {
	return fmt.Sprintf("variable %q: value reference already assigned (%d)", e.Name, e.Reference)
}

// InvalidStateError is returned when an instance operation is not allowed in its current state.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Op, e.State)
}

// NotSettableError is returned when the host writes a variable whose
// causality/variability forbids it in the current state.
type NotSettableError struct {
	Name   string
	Reason string
}

func (e *NotSettableError) Error() string {
	return fmt.Sprintf("variable %q: not settable: %s", e.Name, e.Reason)
}
