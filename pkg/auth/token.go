package auth

// AuthenticatedToken is a bearer credential that has already been verified by
// the authentication layer. Only the authorization-relevant facts are carried:
// which organization the token is bound to, whether it is the internal system
// credential, and any scope restriction it imposes.
type AuthenticatedToken struct {
	// OrganizationID is the org the token is bound to; zero for the system
	// credential.
	OrganizationID int64

	// System marks the internal system credential. System tokens bypass all
	// checks downstream.
	System bool

	// Scopes, when non-empty, is the upper bound the token imposes on
	// effective scopes.
	Scopes []string
}

// BoundToOrganization reports whether the token may act on the given org.
// System tokens are bound to every organization.
func (t *AuthenticatedToken) BoundToOrganization(orgID int64) bool {
	if t == nil {
		return false
	}
	return t.System || t.OrganizationID == orgID
}
