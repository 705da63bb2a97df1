package match

// FailureFunction builds the KMP prefix table for pattern: lps[i] is the
// length of the longest proper prefix of pattern[:i+1] that is also its suffix.
func FailureFunction(pattern []byte) ([]int, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	return failureFunction(pattern), nil
}

func failureFunction(pattern []byte) []int {
	m := len(pattern)
	lps := make([]int, m)
	length := 0
	for i := 1; i < m; {
		switch {
		case pattern[i] == pattern[length]:
			length++
			lps[i] = length
			i++
		case length != 0:
			length = lps[length-1]
		default:
			i++
		}
	}
	return lps
}
