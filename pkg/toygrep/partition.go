package toygrep

import "fmt"

// Partition splits a text of the given length into one contiguous slice per
// worker. Every slice is floor(length/workers) bytes long except the last,
// which absorbs the remainder, so the slices cover [0, length) with no gaps
// and no overlap.
//
// Occurrences that straddle a slice boundary are not visible to either
// worker. Use PartitionWithOverlap to close that gap.
func Partition(length, workers int) ([]Slice, error) {
	return PartitionWithOverlap(length, workers, 0)
}

// PartitionWithOverlap behaves like Partition but extends every slice except
// the last by overlap bytes into its right neighbour. With overlap set to
// len(pattern)-1 every occurrence is found exactly once: the extension is too
// short to contain a match that starts inside the neighbour's own range.
//
// Find never reports overlapping matches within one slice, but neighbours
// scan independently: for a self-overlapping pattern two workers can report
// matches that overlap each other. "aa" over "aaa" with two workers yields
// offsets 0 and 1, where Find over the whole text yields only 0.
func PartitionWithOverlap(length, workers, overlap int) ([]Slice, error) {
	if workers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoWorkers, workers)
	}
	if length < 0 {
		length = 0
	}
	if overlap < 0 {
		overlap = 0
	}

	ratio := length / workers
	slices := make([]Slice, workers)

	for i := range slices {
		begin := ratio * i
		end := ratio * (i + 1)

		if i == workers-1 {
			end = length
		} else {
			end = min(length, end+overlap)
		}

		slices[i] = Slice{Begin: begin, End: end}
	}

	return slices, nil
}
