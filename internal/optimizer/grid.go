package optimizer

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradeloop/internal/domain"
)

// SweepValues expands an inclusive [Min, Max] range into Step
// increments. Decimal arithmetic keeps repeated additions from
// drifting, so 0.1 steps land exactly on the endpoint.
func SweepValues(r domain.ParamRange) []float64 {
	step := decimal.NewFromFloat(r.Step)
	if step.Sign() <= 0 {
		return []float64{r.Min}
	}

	max := decimal.NewFromFloat(r.Max)
	values := make([]float64, 0)
	for v := decimal.NewFromFloat(r.Min); v.LessThanOrEqual(max); v = v.Add(step) {
		f, _ := v.Float64()
		values = append(values, f)
	}
	return values
}

// Combinations builds the cartesian product over all swept parameters.
// Keys are walked in sorted order so the product is deterministic.
func Combinations(swept map[string]domain.ParamRange) []map[string]float64 {
	if len(swept) == 0 {
		return nil
	}

	keys := make([]string, 0, len(swept))
	for k := range swept {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []map[string]float64{{}}
	for _, key := range keys {
		values := SweepValues(swept[key])
		next := make([]map[string]float64, 0, len(combos)*len(values))
		for _, base := range combos {
			for _, v := range values {
				combo := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					combo[k] = bv
				}
				combo[key] = v
				next = append(next, combo)
			}
		}
		combos = next
	}
	return combos
}
