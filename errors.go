package main

import "fmt"

// TypeErrorKind classifies a type checking failure
type TypeErrorKind int

const (
	ErrUnboundName TypeErrorKind = iota
	ErrMismatch
	ErrArgCount
	ErrUnknownFunction
	ErrDuplicate
	ErrMissingReturn
	ErrReserved
)

func (k TypeErrorKind) String() string {
	switch k {
	case ErrUnboundName:
		return "unbound name"
	case ErrMismatch:
		return "type mismatch"
	case ErrArgCount:
		return "argument count"
	case ErrUnknownFunction:
		return "unknown function"
	case ErrDuplicate:
		return "duplicate declaration"
	case ErrMissingReturn:
		return "missing return"
	case ErrReserved:
		return "reserved name"
	default:
		return "type error"
	}
}

// TypeError is the first typing rule violated by a program
type TypeError struct {
	Kind TypeErrorKind
	// Offending construct in s-expression form.
	Construct string
	// Set for ErrMismatch; TypeUnknown otherwise.
	Expected Type
	Actual   Type
	Message  string
}

func (e *TypeError) Error() string {
	if e.Construct == "" {
		return "error: " + e.Message
	}
	return "error: " + e.Message + " in " + e.Construct
}

func mismatch(construct string, expected, actual Type) *TypeError {
	return &TypeError{
		Kind:      ErrMismatch,
		Construct: construct,
		Expected:  expected,
		Actual:    actual,
		Message:   fmt.Sprintf("expected %s but got %s", expected, actual),
	}
}

func unbound(construct, name string) *TypeError {
	return &TypeError{
		Kind:      ErrUnboundName,
		Construct: construct,
		Message:   fmt.Sprintf("unbound name '%s'", name),
	}
}

func argCount(construct, name string, want, got int) *TypeError {
	return &TypeError{
		Kind:      ErrArgCount,
		Construct: construct,
		Message:   fmt.Sprintf("'%s' expects %d argument(s) but got %d", name, want, got),
	}
}

// SyntaxError reports a malformed source form
type SyntaxError struct {
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d:%d: %s", e.Line, e.Column, e.Message)
}
