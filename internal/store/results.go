package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/peakenrich/internal/enrich"
	"github.com/inodb/peakenrich/internal/hybrid"
)

// HybridMethod is the method recorded for hybrid tables in the runs table.
const HybridMethod = "hybrid"

// RunRecord is one row of the runs table.
type RunRecord struct {
	ID            int64
	Name          string
	Method        string
	Genome        string
	Locus         string
	Mappability   string
	Randomization string
	Seed          uint64
	Tested        int64
	Skipped       int64
	Failed        int64
	CreatedAt     time.Time
}

// WriteRun stores a run with its results and fit failures and returns the
// new run ID.
func (s *Store) WriteRun(info RunInfo, run *enrich.Run) (int64, error) {
	id, err := s.insertRun(info, run.Method.String(), run.Randomization.String(), run.Seed,
		int64(run.Tested()), int64(run.Skipped), int64(len(run.Failures)))
	if err != nil {
		return 0, err
	}

	err = s.appendRows("enrichment_results", func(a *goduckdb.Appender) error {
		for _, r := range run.Results {
			if err := a.AppendRow(
				id, r.Database, r.GenesetID, r.Description,
				r.PValue, r.FDR, r.Status, r.Effect,
				int64(r.NGenes), int64(r.NPeakGenes),
			); err != nil {
				return fmt.Errorf("append result %s: %w", r.GenesetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = s.appendRows("fit_failures", func(a *goduckdb.Appender) error {
		for _, f := range run.Failures {
			if err := a.AppendRow(id, f.Database, f.GenesetID, f.Reason); err != nil {
				return fmt.Errorf("append failure %s: %w", f.GenesetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// WriteHybrid stores a hybrid table and returns the new run ID.
func (s *Store) WriteHybrid(info RunInfo, res *hybrid.Result) (int64, error) {
	id, err := s.insertRun(info, HybridMethod, "", 0, int64(res.Matched), 0, 0)
	if err != nil {
		return 0, err
	}

	err = s.appendRows("hybrid_results", func(a *goduckdb.Appender) error {
		for _, r := range res.Rows {
			if err := a.AppendRow(
				id, r.GenesetID, r.PValueX, r.PValueY, r.PValue, r.FDR,
				r.StatusX, r.StatusY, r.Status,
			); err != nil {
				return fmt.Errorf("append hybrid %s: %w", r.GenesetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) insertRun(info RunInfo, method, randomization string, seed uint64, tested, skipped, failed int64) (int64, error) {
	id, err := s.nextRunID()
	if err != nil {
		return 0, err
	}
	created := info.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, info.Name, method, info.Genome, info.Locus, info.Mappability, randomization, seed,
		int64(info.MinSize), int64(info.MaxSize), tested, skipped, failed, created)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	for _, fp := range info.Inputs {
		if _, err := s.db.Exec(`INSERT INTO run_inputs VALUES (?, ?, ?, ?, ?)`,
			id, fp.Role, fp.Path, fp.Size, fp.ModTime); err != nil {
			return 0, fmt.Errorf("insert run input: %w", err)
		}
	}
	return id, nil
}

// appendRows batch-inserts into table using the Appender API.
func (s *Store) appendRows(table string, fill func(*goduckdb.Appender) error) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	if err := fill(appender); err != nil {
		return err
	}
	return appender.Flush()
}

// Runs lists all stored runs in ID order.
func (s *Store) Runs() ([]RunRecord, error) {
	rows, err := s.db.Query(`SELECT
		run_id, name, method, genome, locus, mappability, randomization, seed,
		tested, skipped, failed, created_at
		FROM runs ORDER BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Method, &r.Genome, &r.Locus, &r.Mappability, &r.Randomization, &r.Seed,
			&r.Tested, &r.Skipped, &r.Failed, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// LookupResults returns the results of a run ordered by p-value, then ID.
func (s *Store) LookupResults(runID int64) ([]enrich.Result, error) {
	rows, err := s.db.Query(`SELECT
		geneset_type, geneset_id, description, p_value, fdr, status, effect,
		n_geneset_genes, n_geneset_peak_genes
		FROM enrichment_results
		WHERE run_id=?
		ORDER BY p_value, geneset_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []enrich.Result
	for rows.Next() {
		var r enrich.Result
		var n, np int64
		if err := rows.Scan(
			&r.Database, &r.GenesetID, &r.Description, &r.PValue, &r.FDR, &r.Status, &r.Effect,
			&n, &np,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.NGenes, r.NPeakGenes = int(n), int(np)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return out, nil
}

// LookupFailures returns the fit failures of a run.
func (s *Store) LookupFailures(runID int64) ([]enrich.Failure, error) {
	rows, err := s.db.Query(`SELECT geneset_type, geneset_id, reason
		FROM fit_failures WHERE run_id=? ORDER BY geneset_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []enrich.Failure
	for rows.Next() {
		var f enrich.Failure
		if err := rows.Scan(&f.Database, &f.GenesetID, &f.Reason); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return out, nil
}

// LookupHybrid returns the rows of a hybrid table ordered by hybrid p-value.
func (s *Store) LookupHybrid(runID int64) ([]hybrid.Row, error) {
	rows, err := s.db.Query(`SELECT
		geneset_id, p_value_x, p_value_y, p_value_hybrid, fdr_hybrid,
		status_x, status_y, status_hybrid
		FROM hybrid_results
		WHERE run_id=?
		ORDER BY p_value_hybrid, geneset_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query hybrid: %w", err)
	}
	defer rows.Close()

	var out []hybrid.Row
	for rows.Next() {
		var r hybrid.Row
		if err := rows.Scan(
			&r.GenesetID, &r.PValueX, &r.PValueY, &r.PValue, &r.FDR,
			&r.StatusX, &r.StatusY, &r.Status,
		); err != nil {
			return nil, fmt.Errorf("scan hybrid: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hybrid: %w", err)
	}
	return out, nil
}

// SearchGeneset returns every stored result for a geneset across runs.
func (s *Store) SearchGeneset(genesetID string) (map[int64]enrich.Result, error) {
	rows, err := s.db.Query(`SELECT run_id, geneset_type, p_value, fdr, status, effect
		FROM enrichment_results WHERE geneset_id=?`, genesetID)
	if err != nil {
		return nil, fmt.Errorf("query geneset: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]enrich.Result)
	for rows.Next() {
		var id int64
		r := enrich.Result{GenesetID: genesetID}
		if err := rows.Scan(&id, &r.Database, &r.PValue, &r.FDR, &r.Status, &r.Effect); err != nil {
			return nil, fmt.Errorf("scan geneset: %w", err)
		}
		out[id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate geneset: %w", err)
	}
	return out, nil
}
