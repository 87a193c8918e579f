package framework

// Nearest returns the index of the candidate that target covers most closely:
// the covered candidate with the highest version. Platform-specific candidates
// beat Any. Ties keep the earliest candidate. Returns -1 when nothing is covered.
func Nearest(target Identifier, candidates []Identifier) int {
	best := -1
	for i, c := range candidates {
		if !target.Covers(c) {
			continue
		}
		if best < 0 || closer(c, candidates[best]) {
			best = i
		}
	}
	return best
}

func closer(a, b Identifier) bool {
	if a.IsAny() != b.IsAny() {
		return !a.IsAny()
	}
	return a.Version.Compare(b.Version) > 0
}

// NearestInList walks a priority list of targets and returns the index of the
// nearest candidate for the first target that covers any candidate, together
// with the index of that target. Both are -1 when no target matches.
//
// Any candidates only match once every target in the list has been tried, so
// a fallback target with a specific folder wins over a platform-neutral one.
func NearestInList(targets []Identifier, candidates []Identifier) (candidate, target int) {
	specific := make([]Identifier, 0, len(candidates))
	index := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if !c.IsAny() {
			specific = append(specific, c)
			index = append(index, i)
		}
	}

	for t, target := range targets {
		if i := Nearest(target, specific); i >= 0 {
			return index[i], t
		}
	}
	for i, c := range candidates {
		if c.IsAny() && len(targets) > 0 {
			return i, 0
		}
	}
	return -1, -1
}
