package pipeline

import (
	"fmt"
	"math/rand"

	"github.com/bits-and-blooms/bitset"

	"hn-sampler/src/posts"
)

// Sample draws n distinct rows uniformly at random from rows, in draw order.
//
// When the population is small compared to n a partial Fisher-Yates shuffle
// over a copy of the pool is used; otherwise indices are drawn from the whole
// population and redrawn on collision, with the already selected indices kept
// in a bitset. Both give every n-subset the same probability.
func Sample(rng *rand.Rand, rows []posts.Row, n int) ([]posts.Row, error) {
	if n < 0 {
		return nil, fmt.Errorf("sample size must not be negative, got %d", n)
	}
	population := len(rows)
	if n > population {
		return nil, fmt.Errorf("%w: need %d rows, have %d", ErrInsufficientData, n, population)
	}

	result := make([]posts.Row, n)
	if population <= poolThreshold(n) {
		pool := make([]posts.Row, population)
		copy(pool, rows)
		for i := 0; i < n; i++ {
			j := rng.Intn(population - i)
			result[i] = pool[j]
			pool[j] = pool[population-i-1]
		}
		return result, nil
	}

	selected := bitset.New(uint(population))
	for i := 0; i < n; i++ {
		j := rng.Intn(population)
		for selected.Test(uint(j)) {
			j = rng.Intn(population)
		}
		selected.Set(uint(j))
		result[i] = rows[j]
	}
	return result, nil
}

// poolThreshold is the largest population for which copying the pool is
// cheaper than rejection sampling for a sample of n.
func poolThreshold(n int) int {
	size := 21
	if n > 5 {
		p := 1
		for p < 3*n {
			p *= 4
		}
		size += p
	}
	return size
}
