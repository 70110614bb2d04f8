// Package hybrid combines two enrichment result tables into one hybrid table.
package hybrid

import (
	"github.com/go-gota/gota/dataframe"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/errs"
)

type sourceKind int

const (
	kindTable sourceKind = iota
	kindRun
)

// Source is one input of a combination: either a raw result table or a
// completed enrichment run.
type Source struct {
	kind  sourceKind
	label string
	table dataframe.DataFrame
	run   *enrich.Run
}

// FromTable wraps a raw result table, typically loaded from disk.
func FromTable(df dataframe.DataFrame) Source {
	return Source{kind: kindTable, table: df}
}

// FromRun wraps a completed enrichment run.
func FromRun(r *enrich.Run) Source {
	return Source{kind: kindRun, run: r}
}

// WithLabel names the source in error messages. Column suffixes stay "x"
// and "y".
func (s Source) WithLabel(label string) Source {
	s.label = label
	return s
}

// Label returns the caller-supplied label, or "".
func (s Source) Label() string {
	return s.label
}

// resolve returns the result table of the source.
func (s Source) resolve(label string) (dataframe.DataFrame, error) {
	var df dataframe.DataFrame
	switch s.kind {
	case kindRun:
		if s.run == nil {
			return df, &errs.MissingColumnError{Input: label, Column: enrich.ColPValue}
		}
		df = s.run.Frame()
	default:
		df = s.table
	}
	if df.Err != nil {
		return df, errs.Invalid(label, "", df.Err.Error())
	}
	for _, col := range []string{enrich.ColGenesetID, enrich.ColPValue} {
		if !hasColumn(df, col) {
			return df, &errs.MissingColumnError{Input: label, Column: col}
		}
	}
	return df, nil
}

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}
