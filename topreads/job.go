package topreads

import (
	"fmt"

	"booktop/mr"
)

// Rounds builds the two-round job computing the top k books per
// country. combinePasses controls how many local combining passes run
// before the count shuffle; 0, 1 and 2 are the benchmarked variants and
// any value changes shuffle volume only, never the results.
func Rounds(nWorkers, k, combinePasses int) (mr.RoundsArgs, error) {
	if nWorkers <= 0 {
		return nil, fmt.Errorf("%w: nWorkers = %d", ErrInvalidParameter, nWorkers)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k = %d", ErrInvalidParameter, k)
	}
	if combinePasses < 0 {
		return nil, fmt.Errorf("%w: combinePasses = %d", ErrInvalidParameter, combinePasses)
	}
	var args mr.RoundsArgs
	// round 1: count reads per (country, book)
	args = append(args, mr.RoundArgs{
		MapFunc:    countMap(combinePasses),
		ReduceFunc: countReduce,
		NReduce:    nWorkers,
	})
	// round 2: group by country, keep the k most-read books
	args = append(args, mr.RoundArgs{
		MapFunc:    groupMap,
		ReduceFunc: topKReduce(k),
		NReduce:    nWorkers,
	})
	return args, nil
}
