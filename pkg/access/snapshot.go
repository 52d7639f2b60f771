package access

import (
	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/orgs"
)

// MemberContext is a pre-fetched membership snapshot from a remote or
// replicated source. It carries everything the evaluator would otherwise
// load lazily, so remote-backed evaluators never touch local storage for
// team or project reachability.
//
// Immutable per request: the resolver copies what it needs at construction.
type MemberContext struct {
	Organization    orgs.Organization
	Member          orgs.Member
	TeamMemberships []orgs.TeamMembership
	ProjectIDs      []int64
	AuthState       auth.AuthState
}

// TeamMembership returns the snapshot's membership row for a team, if any.
func (mc MemberContext) TeamMembership(teamID int64) (orgs.TeamMembership, bool) {
	for _, tm := range mc.TeamMemberships {
		if tm.TeamID == teamID {
			return tm, true
		}
	}
	return orgs.TeamMembership{}, false
}

// teamMembershipIndex builds the team-id -> team-role lookup used by the
// evaluator. A membership without an explicit team role maps to "".
func teamMembershipIndex(memberships []orgs.TeamMembership) map[int64]string {
	index := make(map[int64]string, len(memberships))
	for _, tm := range memberships {
		index[tm.TeamID] = tm.Role
	}
	return index
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
