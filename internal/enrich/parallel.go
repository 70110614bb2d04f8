package enrich

import (
	"fmt"
	"sync"

	"github.com/inodb/peakenrich/internal/errs"
)

// task is one geneset ready for testing.
type task struct {
	database    string
	id          string
	description string
	members     []int // design row indices, ascending
	peakGenes   []string
}

// WorkItem carries one task into the pool.
type WorkItem struct {
	Seq  int
	Task *task
}

// WorkResult holds the test outcome for a single geneset.
type WorkResult struct {
	Seq     int
	Task    *task
	Outcome outcome
	Err     error
}

// parallelTest runs t over work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// If workers is 0 or less, a single worker is used.
func parallelTest(t tester, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = 1
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				out, err := safeTest(t, item.Task)
				results <- WorkResult{
					Seq:     item.Seq,
					Task:    item.Task,
					Outcome: out,
					Err:     err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// safeTest runs one test, converting errors and panics into a FitError.
func safeTest(t tester, tk *task) (out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &errs.FitError{GenesetID: tk.id, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()
	out, err = t.test(tk.members)
	if err != nil {
		return outcome{}, &errs.FitError{GenesetID: tk.id, Reason: err.Error()}
	}
	if !isFinite(out.pvalue) || out.pvalue < 0 || out.pvalue > 1 {
		return outcome{}, &errs.FitError{GenesetID: tk.id, Reason: fmt.Sprintf("p-value %v out of range", out.pvalue)}
	}
	return out, nil
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	if len(pending) > 0 {
		return fmt.Errorf("collect results: %d results never reached sequence %d", len(pending), nextSeq)
	}
	return nil
}
