package auth

import "sort"

// ElevationPolicy holds the statically configured scope set granted to
// actively elevated (superuser or staff) sessions.
type ElevationPolicy struct {
	SuperuserScopes []string
}

// ElevatedScopes computes the scope set for an elevated session: the
// configured superuser scopes, any explicitly requested scopes, and whatever
// the caller's real membership already grants. The result is sorted and
// de-duplicated.
func (p ElevationPolicy) ElevatedScopes(requested, memberScopes []string) []string {
	set := make(map[string]struct{},
		len(p.SuperuserScopes)+len(requested)+len(memberScopes))
	for _, group := range [][]string{p.SuperuserScopes, requested, memberScopes} {
		for _, s := range group {
			set[s] = struct{}{}
		}
	}

	scopes := make([]string, 0, len(set))
	for s := range set {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return scopes
}
