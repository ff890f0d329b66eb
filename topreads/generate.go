package topreads

import (
	"bytes"
	"fmt"
	"math"
	"math/rand"
	"path"

	"github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"
)

// Dataset describes a synthetic read-event dataset. Country ids follow
// a Pareto-style heavy tail, so a small set of low country ids receives
// most reads; book ids are uniform. The same Seed always produces the
// same files.
type Dataset struct {
	Countries int64
	Books     int64
	Reads     int64
	Skew      float64
	Shards    int
	Seed      int64
}

func (d Dataset) validate() error {
	switch {
	case d.Countries <= 0:
		return fmt.Errorf("%w: countries = %d", ErrInvalidParameter, d.Countries)
	case d.Books <= 0:
		return fmt.Errorf("%w: books = %d", ErrInvalidParameter, d.Books)
	case d.Reads < 0:
		return fmt.Errorf("%w: reads = %d", ErrInvalidParameter, d.Reads)
	case d.Skew <= 0:
		return fmt.Errorf("%w: skew = %v", ErrInvalidParameter, d.Skew)
	case d.Shards <= 0:
		return fmt.Errorf("%w: shards = %d", ErrInvalidParameter, d.Shards)
	}
	return nil
}

// sample draws one event from r. The country id is a truncated Pareto
// transform of a uniform draw: u^skew shrinks toward zero as skew
// grows, so 0.2/u^skew lands on low ids with increasing mass.
func (d Dataset) sample(r *rand.Rand) Event {
	pareto := 0.2 / math.Pow(r.Float64(), d.Skew)
	var country int64
	if pareto >= math.MaxInt64 {
		country = math.MaxInt64
	} else {
		country = int64(pareto)
	}
	if country > d.Countries-1 {
		country %= d.Countries
	}
	return Event{Country: country, Book: r.Int63n(d.Books)}
}

// Generate writes the dataset as Shards CSV files under dir, one line
// per event, and returns the file paths. Shards are written in
// parallel; each has its own random source seeded Seed+shard, so shard
// contents are independent of scheduling and of each other.
func (d Dataset) Generate(dir string) ([]string, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	files := make([]string, d.Shards)
	var g errgroup.Group
	for shard := 0; shard < d.Shards; shard++ {
		shard := shard
		files[shard] = path.Join(dir, fmt.Sprintf("reads-%04d.csv", shard))
		g.Go(func() error {
			n := d.Reads / int64(d.Shards)
			if int64(shard) < d.Reads%int64(d.Shards) {
				n++
			}
			r := rand.New(rand.NewSource(d.Seed + int64(shard)))
			var buf bytes.Buffer
			for i := int64(0); i < n; i++ {
				ev := d.sample(r)
				fmt.Fprintf(&buf, "%d,%d\n", ev.Country, ev.Book)
			}
			return atomic.WriteFile(files[shard], &buf)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}
