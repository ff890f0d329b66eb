package topreads

import (
	"fmt"
	"strconv"
	"strings"

	"booktop/mr"
)

// accumulator sums counts per key. It is always local to one stage
// invocation and discarded when the stage returns; no state survives
// between batches or partitions.
type accumulator map[AggregateKey]uint64

func (a accumulator) add(key AggregateKey, n uint64) error {
	sum := a[key] + n
	if sum < a[key] {
		return fmt.Errorf("%w: key %q", ErrCountOverflow, key)
	}
	a[key] = sum
	return nil
}

// Combine is one local combining pass: it collapses the input to one
// record per distinct (country, book) key, with counts summed. Applying
// it any number of times before global aggregation changes data volume
// only, never the final sums. Output order is unspecified.
func Combine(records []CountRecord) ([]CountRecord, error) {
	acc := make(accumulator, len(records))
	for _, r := range records {
		if err := acc.add(Event{Country: r.Country, Book: r.Book}.Key(), r.Count); err != nil {
			return nil, err
		}
	}
	out := make([]CountRecord, 0, len(acc))
	for key, count := range acc {
		country, book, err := SplitKey(key)
		if err != nil {
			return nil, err
		}
		out = append(out, CountRecord{Country: country, Book: book, Count: count})
	}
	return out, nil
}

// countMap returns the map function of the count round. It parses raw
// events into (key, count=1) records, runs the requested number of
// local combining passes, and emits one key/value per surviving record.
// With passes == 0 every raw event crosses the partition boundary.
func countMap(passes int) mr.MapF {
	return func(filename, contents string) ([]mr.KeyValue, error) {
		var records []CountRecord
		for _, line := range strings.Split(contents, "\n") {
			line = strings.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			ev, err := ParseEvent(line)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filename, err)
			}
			records = append(records, CountRecord{Country: ev.Country, Book: ev.Book, Count: 1})
		}
		for i := 0; i < passes; i++ {
			var err error
			if records, err = Combine(records); err != nil {
				return nil, fmt.Errorf("%s: %w", filename, err)
			}
		}
		kvs := make([]mr.KeyValue, 0, len(records))
		for _, r := range records {
			kvs = append(kvs, mr.KeyValue{
				Key:   string(Event{Country: r.Country, Book: r.Book}.Key()),
				Value: strconv.FormatUint(r.Count, 10),
			})
		}
		return kvs, nil
	}
}

// countReduce is the global aggregation of the count round: it sees
// every partial count for its key and emits the final sum. It makes no
// assumption about how often the input was pre-combined, or that it was
// pre-combined at all.
func countReduce(key string, values []string) (string, error) {
	acc := make(accumulator, 1)
	k := AggregateKey(key)
	for _, v := range values {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: partial count %q for key %q", ErrMalformedRecord, v, key)
		}
		if err := acc.add(k, n); err != nil {
			return "", err
		}
	}
	return formatCountLine(k, acc[k]), nil
}
