// Package covariate builds the per-gene design table used by enrichment tests.
package covariate

import (
	"fmt"
	"math"
	"sort"

	"github.com/inodb/peakenrich/internal/errs"
)

// MappabilityMode selects the source of the mappability correction.
type MappabilityMode int

const (
	// MappabilityNone disables the correction.
	MappabilityNone MappabilityMode = iota
	// MappabilityPreset uses the per-gene scores carried by the annotation,
	// computed for a read length.
	MappabilityPreset
	// MappabilityCustom uses a user-supplied gene_id -> mappa table.
	MappabilityCustom
)

// PresetReadLengths are the read lengths with precomputed mappability tracks.
var PresetReadLengths = []int{24, 36, 40, 50, 75, 100}

// Mappability configures the mappability covariate.
type Mappability struct {
	Mode       MappabilityMode
	ReadLength int                // for MappabilityPreset
	Source     string             // table name for MappabilityCustom
	Table      map[string]float64 // for MappabilityCustom
}

// NoMappability returns a disabled mappability option.
func NoMappability() Mappability {
	return Mappability{Mode: MappabilityNone}
}

// PresetMappability returns a preset option for a supported read length.
func PresetMappability(readLength int) (Mappability, error) {
	for _, rl := range PresetReadLengths {
		if rl == readLength {
			return Mappability{Mode: MappabilityPreset, ReadLength: readLength}, nil
		}
	}
	return Mappability{}, errs.Preconditionf("no mappability preset for read length %d (supported: %v)", readLength, PresetReadLengths)
}

// CustomMappability validates a custom table. Every value must lie in [0,1].
func CustomMappability(source string, table map[string]float64) (Mappability, error) {
	if len(table) == 0 {
		return Mappability{}, errs.Invalid(source, "mappa", "mappability table is empty")
	}
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := checkScore(table[id]); err != nil {
			return Mappability{}, errs.Invalid(source, "mappa", fmt.Sprintf("gene %s: %v", id, err))
		}
	}
	return Mappability{Mode: MappabilityCustom, Source: source, Table: table}, nil
}

// Enabled reports whether the correction is applied.
func (m Mappability) Enabled() bool {
	return m.Mode != MappabilityNone
}

// String describes the option for logs and run metadata.
func (m Mappability) String() string {
	switch m.Mode {
	case MappabilityPreset:
		return fmt.Sprintf("preset:%d", m.ReadLength)
	case MappabilityCustom:
		return "custom:" + m.Source
	}
	return "none"
}

func checkScore(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("mappability %v outside [0,1]", v)
	}
	return nil
}
