package pipeline

import (
	"github.com/bits-and-blooms/bloom/v3"

	"hn-sampler/src/posts"
)

// duplicateFalsePositiveRate sizes the screening filter.
const duplicateFalsePositiveRate = 0.001

// DuplicateIDs returns the values of column that occur more than once in
// rows, ordered by where each id is first repeated. A negative column
// disables the check.
//
// The first pass screens every id through a Bloom filter; only ids the filter
// has already seen are counted exactly on the second pass, so the result has
// no false positives.
func DuplicateIDs(rows []posts.Row, column int) []string {
	if column < 0 || len(rows) < 2 {
		return nil
	}

	bf := bloom.NewWithEstimates(uint(len(rows)), duplicateFalsePositiveRate)
	suspects := make(map[string]int)
	for _, row := range rows {
		if column >= len(row.Fields) {
			continue
		}
		if bf.TestAndAddString(row.Fields[column]) {
			suspects[row.Fields[column]] = 0
		}
	}
	if len(suspects) == 0 {
		return nil
	}

	var dups []string
	for _, row := range rows {
		if column >= len(row.Fields) {
			continue
		}
		id := row.Fields[column]
		count, ok := suspects[id]
		if !ok {
			continue
		}
		count++
		suspects[id] = count
		if count == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}
