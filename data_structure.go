package linkedgroups

type set map[string]struct{}

func (s set) add(x string) {
	s[x] = struct{}{}
}

func (s set) contain(x string) bool {
	_, ok := s[x]
	return ok
}

// uniqueStrings drops empty and repeated entries, keeping the first
// occurrence order.
func uniqueStrings(xs []string) []string {
	seen := make(set)
	var result []string
	for _, x := range xs {
		if x == "" || seen.contain(x) {
			continue
		}
		seen.add(x)
		result = append(result, x)
	}
	return result
}
