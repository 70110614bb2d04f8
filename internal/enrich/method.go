// Package enrich fits one enrichment test per geneset against a design table.
package enrich

import (
	"fmt"
	"strings"

	"github.com/inodb/peakenrich/internal/errs"
)

// Method selects the statistical test.
type Method int

const (
	// Presence regresses has_peak on geneset membership (logistic).
	Presence Method = iota
	// Count regresses the peak count on geneset membership (quasi-Poisson).
	Count
	// PresenceApprox is a score test against a logistic null model fit once per run.
	PresenceApprox
	// CountApprox is a score test against a quasi-Poisson null model fit once per run.
	CountApprox
	// Fisher is Fisher's exact test on has_peak by membership, without
	// length or mappability correction.
	Fisher
)

var methodNames = []string{"presence", "count", "presence_approx", "count_approx", "fisher"}

func (m Method) String() string {
	if int(m) >= 0 && int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod resolves a method name. The family names
// "binomial" and "poisson" are accepted for the full-fit methods.
func ParseMethod(name string) (Method, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "binomial":
		return Presence, nil
	case "poisson":
		return Count, nil
	}
	for i, s := range methodNames {
		if s == n {
			return Method(i), nil
		}
	}
	return 0, errs.Preconditionf("unsupported method %q (supported: %s)", name, strings.Join(methodNames, ", "))
}

// Randomization permutes peak payloads across genes before testing. It is
// used to check test calibration, never for production p-values.
type Randomization int

const (
	RandomizeNone Randomization = iota
	RandomizeComplete
	RandomizeByLength
	RandomizeByLocation
)

var randomizationNames = []string{"none", "complete", "bylength", "bylocation"}

func (r Randomization) String() string {
	if int(r) >= 0 && int(r) < len(randomizationNames) {
		return randomizationNames[r]
	}
	return fmt.Sprintf("Randomization(%d)", int(r))
}

// ParseRandomization resolves a randomization mode; "" means none.
func ParseRandomization(name string) (Randomization, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return RandomizeNone, nil
	}
	for i, s := range randomizationNames {
		if s == n {
			return Randomization(i), nil
		}
	}
	return 0, errs.Preconditionf("unsupported randomization %q (supported: %s)", name, strings.Join(randomizationNames, ", "))
}

// Status labels for the direction of an association.
const (
	StatusEnriched = "enriched"
	StatusDepleted = "depleted"
)

func statusOf(effect float64) string {
	if effect > 0 {
		return StatusEnriched
	}
	return StatusDepleted
}
