package normalize

// Similarity computes the Ratcliff/Obershelp ratio between two strings:
// twice the number of matching characters divided by the total length.
// Matching characters are found by recursively anchoring on the longest
// common substring. The result is in [0,1]; two empty strings score 1.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matching(ra, rb)) / float64(total)
}

func matching(a, b []rune) int {
	ai, bi, size := longestCommon(a, b)
	if size == 0 {
		return 0
	}
	return size +
		matching(a[:ai], b[:bi]) +
		matching(a[ai+size:], b[bi+size:])
}

// longestCommon returns the start offsets and length of the longest common
// substring of a and b. Ties resolve to the earliest position in a, then b.
func longestCommon(a, b []rune) (ai, bi, size int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	// prev[j] holds the common-suffix length ending at a[i-1], b[j-1].
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > size {
					size = cur[j]
					ai = i - size
					bi = j - size
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return ai, bi, size
}
