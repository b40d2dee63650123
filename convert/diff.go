package convert

import "unicode/utf8"

// FirstDifference returns the rune index at which a and b first differ.
// If one is a strict prefix of the other, it returns the rune length of the
// shorter one. If a and b are equal it returns 0; callers that care about
// equality must check it separately.
func FirstDifference(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n := min(len(ra), len(rb))
	for i := 0; i < n; i++ {
		if ra[i] != rb[i] {
			return i
		}
	}
	if len(ra) != len(rb) {
		return n
	}
	return 0
}

// divergence is the split point used when diffing base against text: the
// first mismatch, or the rune length of base when the two differ without a
// positional mismatch.
func divergence(base, text string) int {
	if base == text {
		return 0
	}
	pos := FirstDifference(base, text)
	lb, lt := utf8.RuneCountInString(base), utf8.RuneCountInString(text)
	if pos == min(lb, lt) {
		return lb
	}
	return pos
}

// splitAt splits s at rune index i. An index past the end yields (s, "").
func splitAt(s string, i int) (prefix, rest string) {
	rs := []rune(s)
	if i > len(rs) {
		i = len(rs)
	}
	return string(rs[:i]), string(rs[i:])
}
