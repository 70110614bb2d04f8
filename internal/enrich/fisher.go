package enrich

import (
	"math"

	fet "github.com/glycerine/golang-fisher-exact"
)

// fisherTester runs Fisher's exact test on the has_peak by membership table.
type fisherTester struct {
	hasPeak  []bool
	withPeak int
}

func (t *fisherTester) test(members []int) (outcome, error) {
	if constantMembership(members, len(t.hasPeak)) {
		return outcome{}, errNoContrast
	}
	n11 := 0
	for _, i := range members {
		if t.hasPeak[i] {
			n11++
		}
	}
	n12 := len(members) - n11
	n21 := t.withPeak - n11
	n22 := len(t.hasPeak) - len(members) - n21

	_, _, _, twop := fet.FisherExactTest(n11, n12, n21, n22)
	if !isFinite(twop) {
		return outcome{}, errDegenerate
	}
	return outcome{pvalue: math.Min(1, math.Max(0, twop)), effect: logOddsRatio(n11, n12, n21, n22)}, nil
}

// logOddsRatio adds 0.5 to every cell when any cell is empty.
func logOddsRatio(n11, n12, n21, n22 int) float64 {
	a, b, c, d := float64(n11), float64(n12), float64(n21), float64(n22)
	if n11 == 0 || n12 == 0 || n21 == 0 || n22 == 0 {
		a, b, c, d = a+0.5, b+0.5, c+0.5, d+0.5
	}
	return math.Log(a * d / (b * c))
}
