package features

import "context"

// TeamRoles gates the team-role scope walk during project scope checks.
const TeamRoles = "organizations:team-roles"

// Gate answers whether an organization has a capability enabled. Lookup
// failures must read as "off": a gate error never widens access.
type Gate interface {
	OrgHas(ctx context.Context, feature string, orgID int64) bool
}

// StaticGate is a config-backed gate: a feature is on for every org listed
// under it, or for all orgs when the list contains the wildcard org id 0.
type StaticGate struct {
	enabled map[string]map[int64]bool
}

// NewStaticGate builds a gate from feature -> org-id list. An entry of 0
// enables the feature globally.
func NewStaticGate(features map[string][]int64) *StaticGate {
	enabled := make(map[string]map[int64]bool, len(features))
	for feature, orgIDs := range features {
		orgs := make(map[int64]bool, len(orgIDs))
		for _, id := range orgIDs {
			orgs[id] = true
		}
		enabled[feature] = orgs
	}
	return &StaticGate{enabled: enabled}
}

// OrgHas reports whether the feature is enabled for the organization.
func (g *StaticGate) OrgHas(_ context.Context, feature string, orgID int64) bool {
	orgs, ok := g.enabled[feature]
	if !ok {
		return false
	}
	return orgs[orgID] || orgs[0]
}
