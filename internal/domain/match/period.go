package match

// DetectPeriod returns the smallest period of the pattern that wit was built
// from, considering shifts up to ⌈m/2⌉-1, or 0 when there is none and the
// pattern is treated as non-periodic.
func DetectPeriod(wit Witness) int {
	for j := 2; j < len(wit); j++ {
		if wit[j] == 0 {
			return j - 1
		}
	}
	return 0
}
