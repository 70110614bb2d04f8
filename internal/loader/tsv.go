package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"

	"github.com/inodb/peakenrich/internal/errs"
)

// recordReader replays parsed records to gocsv.
type recordReader struct {
	records [][]string
	pos     int
}

func (r *recordReader) Read() ([]string, error) {
	if r.pos >= len(r.records) {
		return nil, io.EOF
	}
	rec := r.records[r.pos]
	r.pos++
	return rec, nil
}

func (r *recordReader) ReadAll() ([][]string, error) {
	rest := r.records[r.pos:]
	r.pos = len(r.records)
	return rest, nil
}

// readTSV decodes a tab-delimited table with a header line into out, a
// pointer to a slice of structs tagged for gocsv. Header names are trimmed
// and renamed through aliases; every required column must be present.
// Lines starting with '#' are skipped. The returned slice holds the 1-based
// file line of every decoded record.
func readTSV(r io.Reader, source string, aliases map[string]string, required []string, out any) ([]int, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Invalid(source, "", err.Error())
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	if len(records) == 0 {
		return nil, errs.Invalid(source, "", "empty file")
	}

	header := records[0]
	present := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if a, ok := aliases[h]; ok {
			h = a
		}
		header[i] = h
		present[h] = true
	}
	for _, col := range required {
		if !present[col] {
			return nil, &errs.InputError{Source: source, Line: lines[0], Column: col, Reason: "missing required column"}
		}
	}
	for i := 1; i < len(records); i++ {
		for len(records[i]) < len(header) {
			records[i] = append(records[i], "")
		}
	}

	if err := gocsv.UnmarshalCSV(&recordReader{records: records}, out); err != nil {
		return nil, errs.Invalid(source, "", err.Error())
	}
	return lines[1:], nil
}

// fieldParser converts string fields and records the first failure with its
// line and column.
type fieldParser struct {
	source string
	line   int
	err    error
}

func (p *fieldParser) fail(column, reason string) {
	if p.err == nil {
		p.err = &errs.InputError{Source: p.source, Line: p.line, Column: column, Reason: reason}
	}
}

func (p *fieldParser) parseInt(column, v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		p.fail(column, fmt.Sprintf("not an integer: %q", v))
	}
	return n
}

func (p *fieldParser) optInt(column, v string) null.Int {
	v = strings.TrimSpace(v)
	if isMissing(v) {
		return null.Int{}
	}
	return null.IntFrom(p.parseInt(column, v))
}

func (p *fieldParser) optFloat(column, v string) null.Float {
	v = strings.TrimSpace(v)
	if isMissing(v) {
		return null.Float{}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(column, fmt.Sprintf("not a number: %q", v))
		return null.Float{}
	}
	return null.FloatFrom(f)
}

func (p *fieldParser) required(column, v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		p.fail(column, "empty value")
	}
	return v
}

func isMissing(v string) bool {
	return v == "" || v == "NA" || v == "." || v == "null"
}
