package loader

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/inodb/peakenrich/internal/errs"
	"github.com/inodb/peakenrich/internal/geneset"
)

// LoadGenesets reads a geneset file. The database is named after the file
// without extensions.
func LoadGenesets(path string) (*geneset.Database, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadGenesets(rc, path, databaseName(path))
}

// ReadGenesets parses a tab-delimited membership table: column 1 is the
// geneset ID, column 2 a gene ID, one row per membership. An optional third
// column sets the geneset description. A first line whose second field is
// gene_id or geneid is treated as a header.
func ReadGenesets(r io.Reader, source, name string) (*geneset.Database, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	db := geneset.New(name)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, &errs.InputError{Source: source, Line: lineNum, Reason: fmt.Sprintf("expected at least 2 fields, got %d", len(fields))}
		}
		id := strings.TrimSpace(fields[0])
		gene := strings.TrimSpace(fields[1])
		if lineNum == 1 && (gene == "gene_id" || gene == "geneid") {
			continue
		}
		if id == "" || gene == "" {
			return nil, &errs.InputError{Source: source, Line: lineNum, Reason: "empty geneset or gene identifier"}
		}
		db.Add(id, gene)
		if len(fields) > 2 {
			if desc := strings.TrimSpace(fields[2]); desc != "" {
				db.SetDescription(id, desc)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", source, err)
	}
	if db.Len() == 0 {
		return nil, errs.Invalid(source, "", "no genesets")
	}
	return db, nil
}

func databaseName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".gz")
	return strings.TrimSuffix(base, filepath.Ext(base))
}
