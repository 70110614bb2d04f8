package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/genome"
)

// LoadPeaks reads a BED file (optionally gzipped).
func LoadPeaks(path string) ([]genome.Peak, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadPeaks(rc, path)
}

// ReadPeaks parses BED records. Columns past the third are optional: name
// (4th) and signal, taken from the narrowPeak signalValue (7th) when present,
// otherwise from the score (5th). Track, browser and comment lines are
// skipped.
func ReadPeaks(r io.Reader, source string) ([]genome.Peak, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var peaks []genome.Peak
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			fields = strings.Fields(line)
		}
		if len(fields) < 3 {
			return nil, &errs.InputError{Source: source, Line: lineNum, Reason: fmt.Sprintf("expected at least 3 fields, got %d", len(fields))}
		}

		p := fieldParser{source: source, line: lineNum}
		peak := genome.Peak{
			Chrom: p.required("chrom", fields[0]),
			Start: p.parseInt("start", fields[1]),
			End:   p.parseInt("end", fields[2]),
		}
		if len(fields) > 3 && fields[3] != "." {
			peak.Name = fields[3]
		}
		switch {
		case len(fields) >= 7:
			peak.Signal = signal(&p, "signalValue", fields[6])
		case len(fields) >= 5:
			peak.Signal = p.optFloat("score", fields[4])
		}
		if p.err != nil {
			return nil, p.err
		}
		if err := peak.Validate(); err != nil {
			return nil, &errs.InputError{Source: source, Line: lineNum, Reason: err.Error()}
		}
		peaks = append(peaks, peak)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", source, err)
	}
	if len(peaks) == 0 {
		return nil, errs.Invalid(source, "", "no peaks")
	}
	return peaks, nil
}

// signal treats the narrowPeak placeholder -1 as missing.
func signal(p *fieldParser, column, v string) null.Float {
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f == -1 {
		return null.Float{}
	}
	return p.optFloat(column, v)
}
