package screener

// SplitBatches partitions items into n batches whose sizes differ by at
// most one. Earlier batches take the base size and later batches absorb
// the remainder. Fewer items than batches yields only non-empty batches.
func SplitBatches[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}
	if len(items) == 0 {
		return nil
	}

	base := len(items) / n
	rem := len(items) % n
	batches := make([][]T, 0, n)
	idx := 0
	for i := 0; i < n; i++ {
		size := base
		// The last rem batches carry one extra item.
		if i >= n-rem {
			size++
		}
		batches = append(batches, items[idx:idx+size])
		idx += size
	}
	return batches
}
