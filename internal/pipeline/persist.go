package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/hybrid"
	"github.com/inodb/peakenrich/internal/output"
	"github.com/inodb/peakenrich/internal/store"
)

// Persister writes finished tables outside the compute core.
type Persister interface {
	SaveRun(run *enrich.Run) ([]string, error)
	SaveHybrid(res *hybrid.Result) ([]string, error)
	Close() error
}

// ResultsPath returns <dir>/<prefix>_<name>_results.tsv.
func ResultsPath(dir, prefix, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_results.tsv", prefix, name))
}

// StorePath returns <dir>/<prefix>.duckdb.
func StorePath(dir, prefix string) string {
	return filepath.Join(dir, prefix+".duckdb")
}

// filePersister writes TSV tables and appends every table to a DuckDB store.
type filePersister struct {
	opts Options
	db   *store.Store
}

func openPersister(opts Options) (Persister, error) {
	db, err := store.Open(StorePath(opts.OutDir, opts.OutPrefix))
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}
	return &filePersister{opts: opts, db: db}, nil
}

func (p *filePersister) info(name string) store.RunInfo {
	return store.RunInfo{
		Name:        p.opts.OutPrefix + "_" + name,
		Genome:      p.opts.Genome,
		Locus:       p.opts.Locus.Name,
		Mappability: p.opts.Mappability.String(),
		MinSize:     p.opts.MinGenesetSize,
		MaxSize:     p.opts.MaxGenesetSize,
		Inputs:      p.opts.Inputs,
	}
}

// SaveRun writes one file and one store run. Both are attempted even when
// the other fails.
func (p *filePersister) SaveRun(run *enrich.Run) ([]string, error) {
	name := run.Method.String()
	path := ResultsPath(p.opts.OutDir, p.opts.OutPrefix, name)

	var files []string
	fileErr := output.WriteFile(path, run.Frame())
	if fileErr == nil {
		files = append(files, path)
	}
	_, dbErr := p.db.WriteRun(p.info(name), run)
	if dbErr != nil {
		dbErr = fmt.Errorf("store %s run: %w", name, dbErr)
	}
	return files, errors.Join(fileErr, dbErr)
}

// SaveHybrid writes the hybrid table to a file and the store.
func (p *filePersister) SaveHybrid(res *hybrid.Result) ([]string, error) {
	path := ResultsPath(p.opts.OutDir, p.opts.OutPrefix, store.HybridMethod)

	var files []string
	fileErr := output.WriteFile(path, res.Frame)
	if fileErr == nil {
		files = append(files, path)
	}
	_, dbErr := p.db.WriteHybrid(p.info(store.HybridMethod), res)
	if dbErr != nil {
		dbErr = fmt.Errorf("store hybrid table: %w", dbErr)
	}
	return files, errors.Join(fileErr, dbErr)
}

func (p *filePersister) Close() error {
	return p.db.Close()
}
