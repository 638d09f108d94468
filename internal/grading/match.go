package grading

// Match reports whether a submitted answer equals the canonical answer or any
// accepted variation, compared after normalization. An empty submission only
// matches an answer key that itself normalizes to empty, so unanswered
// questions never match a real answer key. Matching is exact: no partial
// credit and no edit-distance tolerance.
func Match(submitted, canonical string, variations []string) bool {
	got := Normalize(submitted)
	if got == Normalize(canonical) {
		return true
	}
	for _, v := range variations {
		if got == Normalize(v) {
			return true
		}
	}
	return false
}
