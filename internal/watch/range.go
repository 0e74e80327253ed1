package watch

import "fmt"

// blockRange is an inclusive block range.
type blockRange struct {
	from uint64
	to   uint64
}

// splitRange splits [from, to] into batches of at most batchSize blocks so a
// backfill does not exceed provider log limits.
func splitRange(from, to, batchSize uint64) ([]blockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	ranges := make([]blockRange, 0)
	start := from
	for start <= to {
		end := to
		if remaining := to - start + 1; remaining > batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, blockRange{from: start, to: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
