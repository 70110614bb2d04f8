// Package errs defines the error taxonomy shared by the enrichment pipeline.
//
// Run-level failures (invalid input, precondition violations, hybrid join
// failures) propagate to the caller. Model fit failures are scoped to a single
// geneset and are recorded by the engine instead of aborting the run.
package errs

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrPrecondition         = errors.New("precondition violation")
	ErrNoCommonGenesets     = errors.New("no common genesets")
	ErrMissingResultsColumn = errors.New("missing results column")
	ErrModelFit             = errors.New("model fit failure")
)

// InputError describes a malformed input table or value.
type InputError struct {
	Source string // file name or logical table name
	Line   int    // 1-based line, 0 when not applicable
	Column string
	Reason string
}

func (e *InputError) Error() string {
	msg := "invalid input " + e.Source
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	return msg + ": " + e.Reason
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

// MissingColumnError is returned when a result table lacks a required column.
type MissingColumnError struct {
	Input  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("results %q: missing required column %q", e.Input, e.Column)
}

func (e *MissingColumnError) Unwrap() error { return ErrMissingResultsColumn }

// FitError records why a single geneset could not be tested.
type FitError struct {
	GenesetID string
	Reason    string
}

func (e *FitError) Error() string {
	return fmt.Sprintf("geneset %s: %s", e.GenesetID, e.Reason)
}

func (e *FitError) Unwrap() error { return ErrModelFit }

// Invalid returns an InputError without line information.
func Invalid(source, column, reason string) error {
	return &InputError{Source: source, Column: column, Reason: reason}
}

// Preconditionf formats a precondition violation.
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
