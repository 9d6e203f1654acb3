package novel

// costNumerator is chosen so the baseline window prices a sentence at exactly 1.
const costNumerator = BaselineInterval

// CostFor maps a cadence average to the token price of the next sentence:
// max(1, 1000 / max(1, average)). A faster cadence (smaller average) never
// lowers the price. A baseline window (average 1000) costs 1; three additions
// one unit apart (average about 400) cost 2.
func CostFor(average int64) int64 {
	if average < 1 {
		average = 1
	}
	return max(costNumerator/average, 1)
}
