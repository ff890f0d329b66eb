// Package topreads computes the K most-read books per country from a
// stream of (country, book) read events. The computation runs as two
// map-reduce rounds: count reads per (country, book) with optional
// map-side combining, then group by country and keep each country's top
// K books.
package topreads

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Error kinds. All of them are fatal for the whole run: there is no
// row-skipping and no partial output.
var (
	// ErrMalformedRecord reports an input or intermediate line with the
	// wrong number of fields or a non-integer field.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInvalidParameter reports a bad configuration value, detected
	// before any processing begins.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrCountOverflow reports a count sum exceeding the 64-bit range.
	// The policy is fatal rather than saturating.
	ErrCountOverflow = errors.New("count overflow")
)

// Event is one observed read of a book in a country.
type Event struct {
	Country int64
	Book    int64
}

// AggregateKey identifies a (country, book) pair during the count
// round. It doubles as the shuffle key, so it must compare equal
// exactly when country and book both match.
type AggregateKey string

// Key returns the event's aggregation key.
func (e Event) Key() AggregateKey {
	return AggregateKey(strconv.FormatInt(e.Country, 10) + "," + strconv.FormatInt(e.Book, 10))
}

// SplitKey recovers the country and book ids from an aggregation key.
func SplitKey(k AggregateKey) (country, book int64, err error) {
	s := string(k)
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return 0, 0, fmt.Errorf("%w: key %q", ErrMalformedRecord, s)
	}
	country, err = strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: key %q", ErrMalformedRecord, s)
	}
	book, err = strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: key %q", ErrMalformedRecord, s)
	}
	return country, book, nil
}

// CountRecord is an aggregated read count for one (country, book) pair.
// Count is at least 1; a record only exists for observed keys.
type CountRecord struct {
	Country int64
	Book    int64
	Count   uint64
}

// ParseEvent parses one input line of the form "country,book".
func ParseEvent(line string) (Event, error) {
	country, book, err := SplitKey(AggregateKey(line))
	if err != nil {
		return Event{}, err
	}
	return Event{Country: country, Book: book}, nil
}

// formatCountLine renders one aggregated count as emitted by the count
// round: "country,book count".
func formatCountLine(key AggregateKey, count uint64) string {
	return fmt.Sprintf("%s %d\n", key, count)
}

// parseCountLine parses a line produced by formatCountLine.
func parseCountLine(line string) (AggregateKey, uint64, error) {
	i := strings.IndexByte(line, ' ')
	if i < 0 {
		return "", 0, fmt.Errorf("%w: count line %q", ErrMalformedRecord, line)
	}
	key := AggregateKey(line[:i])
	if _, _, err := SplitKey(key); err != nil {
		return "", 0, err
	}
	count, err := strconv.ParseUint(line[i+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("%w: count line %q", ErrMalformedRecord, line)
	}
	return key, count, nil
}
