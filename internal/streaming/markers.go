package streaming

import "strings"

// MarkerPair is one spelling of the reasoning boundary markers. Matching is
// positional: whichever marker occurs earliest in the buffer wins; table
// order only breaks exact position ties.
type MarkerPair struct {
	Start string
	End   string
}

// DefaultMarkers covers the tag spellings reasoning models are known to
// emit. The table is data-driven so new spellings are one entry, not a new
// code path.
func DefaultMarkers() []MarkerPair {
	return []MarkerPair{
		{Start: "<think>", End: "</think>"},
		{Start: "<thinking>", End: "</thinking>"},
	}
}

// earliest returns the position and length of the first occurrence of any of
// the given markers, or -1 when none is present.
func earliest(buf string, markers []string) (pos, length int) {
	pos = -1
	for _, m := range markers {
		if i := strings.Index(buf, m); i >= 0 {
			if pos == -1 || i < pos {
				pos, length = i, len(m)
			}
		}
	}
	return pos, length
}

// partialSuffix returns the length of the longest suffix of buf that is a
// proper prefix of any of the given markers. That suffix must never be
// flushed: the rest of the marker may arrive in the next chunk.
func partialSuffix(buf string, markers []string) int {
	longest := 0
	for _, m := range markers {
		max := len(m) - 1
		if max > len(buf) {
			max = len(buf)
		}
		for n := max; n > longest; n-- {
			if strings.HasSuffix(buf, m[:n]) {
				longest = n
				break
			}
		}
	}
	return longest
}
