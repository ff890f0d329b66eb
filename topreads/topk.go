package topreads

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"booktop/mr"
)

// BookCount is one entry of a country's top-K list.
type BookCount struct {
	Book  int64
	Count uint64
}

// TopBooks selects the k most-read books from one country's final
// counts: descending by count, ties broken by ascending book id so the
// result is deterministic. If the country has fewer than k distinct
// books, all of them are returned.
func TopBooks(counts map[int64]uint64, k int) []BookCount {
	books := make([]BookCount, 0, len(counts))
	for book, count := range counts {
		books = append(books, BookCount{Book: book, Count: count})
	}
	sort.Slice(books, func(i, j int) bool {
		if books[i].Count == books[j].Count {
			return books[i].Book < books[j].Book
		}
		return books[i].Count > books[j].Count
	})
	if len(books) > k {
		books = books[:k]
	}
	return books
}

// groupMap is the map function of the top-K round. It re-keys the count
// round's output by country alone, so the shuffle co-locates every book
// of a country on one reduce task.
func groupMap(filename, contents string) ([]mr.KeyValue, error) {
	var kvs []mr.KeyValue
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		key, count, err := parseCountLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		country, book, err := SplitKey(key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		kvs = append(kvs, mr.KeyValue{
			Key:   strconv.FormatInt(country, 10),
			Value: fmt.Sprintf("%d %d", book, count),
		})
	}
	return kvs, nil
}

// topKReduce returns the reduce function of the top-K round: one call
// per observed country, selecting and formatting that country's top k
// books.
func topKReduce(k int) mr.ReduceF {
	return func(key string, values []string) (string, error) {
		country, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: country key %q", ErrMalformedRecord, key)
		}
		counts := make(map[int64]uint64, len(values))
		for _, v := range values {
			i := strings.IndexByte(v, ' ')
			if i < 0 {
				return "", fmt.Errorf("%w: book count %q for country %q", ErrMalformedRecord, v, key)
			}
			book, err := strconv.ParseInt(v[:i], 10, 64)
			if err != nil {
				return "", fmt.Errorf("%w: book count %q for country %q", ErrMalformedRecord, v, key)
			}
			count, err := strconv.ParseUint(v[i+1:], 10, 64)
			if err != nil {
				return "", fmt.Errorf("%w: book count %q for country %q", ErrMalformedRecord, v, key)
			}
			sum := counts[book] + count
			if sum < counts[book] {
				return "", fmt.Errorf("%w: country %d, book %d", ErrCountOverflow, country, book)
			}
			counts[book] = sum
		}
		return FormatTopK(country, TopBooks(counts, k)), nil
	}
}
