package content

import (
	"sort"
	"strconv"
	"strings"
)

// PagesToRanges compresses a set of page numbers into a citation string:
// maximal runs of consecutive pages collapse to "start-end", isolated pages
// stay bare, runs are comma-joined in ascending order. Input order and
// duplicates do not affect the result; empty input yields "".
//
// {1,2,3,5,7,8} -> "1-3,5,7-8"
func PagesToRanges(pages []int) string {
	if len(pages) == 0 {
		return ""
	}

	sorted := make([]int, len(pages))
	copy(sorted, pages)
	sort.Ints(sorted)

	// Dedupe in place.
	uniq := sorted[:1]
	for _, p := range sorted[1:] {
		if p != uniq[len(uniq)-1] {
			uniq = append(uniq, p)
		}
	}

	var b strings.Builder
	start, prev := uniq[0], uniq[0]
	flush := func() {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(start))
		if prev > start {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(prev))
		}
	}
	for _, p := range uniq[1:] {
		if p == prev+1 {
			prev = p
			continue
		}
		flush()
		start, prev = p, p
	}
	flush()

	return b.String()
}
