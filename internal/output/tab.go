// Package output provides result table formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// MissingValue is written for NaN floats and empty strings.
const MissingValue = "NA"

// TabWriter writes result tables in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// SetColumns sets the header columns.
func (tw *TabWriter) SetColumns(columns []string) {
	tw.columns = columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteRow writes one row. The number of values must match the header.
func (tw *TabWriter) WriteRow(values []string) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("write row: %d values for %d columns", len(values), len(tw.columns))
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteFrame writes a whole table, header first, in the table's column order.
func (tw *TabWriter) WriteFrame(df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("write table: %w", df.Err)
	}
	tw.SetColumns(df.Names())
	if err := tw.WriteHeader(); err != nil {
		return err
	}

	cols := make([][]string, df.Ncol())
	for j, name := range tw.columns {
		cols[j] = formatColumn(df.Col(name))
	}
	row := make([]string, len(cols))
	for i := 0; i < df.Nrow(); i++ {
		for j := range cols {
			row[j] = cols[j][i]
		}
		if err := tw.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// formatColumn renders floats at full precision. Gota's own records use %f,
// which truncates small p-values.
func formatColumn(s series.Series) []string {
	var out []string
	switch s.Type() {
	case series.Float:
		vals := s.Float()
		out = make([]string, len(vals))
		for i, v := range vals {
			out[i] = FormatFloat(v)
		}
	default:
		out = s.Records()
		for i, v := range out {
			if v == "" || v == "NaN" {
				out[i] = MissingValue
			}
		}
	}
	return out
}

// FormatFloat formats v in the shortest form that round-trips.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return MissingValue
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteFile writes df to path, creating parent directories.
func WriteFile(path string, df dataframe.DataFrame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	tw := NewTabWriter(f)
	if err := tw.WriteFrame(df); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
