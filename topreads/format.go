package topreads

import (
	"bytes"
	"fmt"
)

// FormatTopK renders one country's result line:
//
//	country,book1:count1, book2:count2
//
// in the order the selector produced. Pure formatting, no aggregation.
func FormatTopK(country int64, books []BookCount) string {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%d,", country)
	for i, b := range books {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(buf, "%d:%d", b.Book, b.Count)
	}
	buf.WriteByte('\n')
	return buf.String()
}
