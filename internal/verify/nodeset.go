package verify

// nodeSet is a membership set of node host names.
type nodeSet map[string]struct{}

func newNodeSet(names []string) nodeSet {
	s := make(nodeSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s nodeSet) has(name string) bool {
	_, ok := s[name]
	return ok
}

// missingNodes returns the roster entries that do not appear in seen,
// in roster order. Duplicates in seen have no further effect.
func missingNodes(roster, seen []string) []string {
	found := newNodeSet(seen)
	var out []string
	for _, n := range roster {
		if !found.has(n) {
			out = append(out, n)
		}
	}
	return out
}

// unexpectedNodes returns every entry of seen that is not in the roster,
// one per occurrence, in the order seen.
func unexpectedNodes(roster, seen []string) []string {
	expected := newNodeSet(roster)
	var out []string
	for _, n := range seen {
		if !expected.has(n) {
			out = append(out, n)
		}
	}
	return out
}
