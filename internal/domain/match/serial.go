package match

// Serial returns every start offset of pattern in text, ascending, using a
// single KMP pass. An empty pattern or a pattern longer than text yields nil.
func Serial(text, pattern []byte) []int {
	if len(pattern) == 0 || len(text) < len(pattern) {
		return nil
	}
	return SerialLPS(text, pattern, failureFunction(pattern))
}

// SerialLPS is Serial with a precomputed failure table, for callers that
// match the same pattern against many texts. lps must come from
// FailureFunction(pattern).
func SerialLPS(text, pattern []byte, lps []int) []int {
	n, m := len(text), len(pattern)
	if m == 0 || n < m {
		return nil
	}

	var out []int
	j := 0
	for i := 0; i < n; {
		if text[i] == pattern[j] {
			i++
			j++
			if j == m {
				out = append(out, i-m)
				j = lps[j-1]
			}
			continue
		}
		if j != 0 {
			j = lps[j-1]
		} else {
			i++
		}
	}
	return out
}
