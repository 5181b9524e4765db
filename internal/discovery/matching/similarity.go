package matching

// Similarity scores how likely two names refer to the same person, in [0,1].
// It is the longest-common-subsequence ratio over normalized forms:
// 2*LCS / (len(a') + len(b')). Symmetric; exact normalized matches score 1.0.
// Two empty names score 1.0 — absence of a name is not evidence of a
// mismatch, though real adapters never produce one.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	if len(na) == 0 || len(nb) == 0 {
		return 0
	}
	return 2 * float64(lcsLength(na, nb)) / float64(len(na)+len(nb))
}

// FuzzyMatch reports whether two names clear the similarity threshold.
func FuzzyMatch(a, b string, threshold float64) bool {
	return Similarity(a, b) >= threshold
}

// lcsLength computes the longest common subsequence length with a rolling
// single-row table; names are short so quadratic time is fine.
func lcsLength(a, b string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}
