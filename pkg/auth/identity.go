package auth

// ActorKind classifies the caller once, when the request identity is parsed.
// Downstream code branches on the tag instead of probing attributes.
type ActorKind int

const (
	// ActorAnonymous is an unauthenticated caller.
	ActorAnonymous ActorKind = iota
	// ActorUser is an authenticated human session.
	ActorUser
	// ActorService is a service/integration principal acting on its own
	// behalf, not a human user.
	ActorService
	// ActorSystem is the internal trusted caller.
	ActorSystem
)

func (k ActorKind) String() string {
	switch k {
	case ActorUser:
		return "user"
	case ActorService:
		return "service"
	case ActorSystem:
		return "system"
	default:
		return "anonymous"
	}
}

// Identity describes who is calling. It is built exactly once at the request
// boundary and treated as read-only afterwards.
type Identity struct {
	Kind ActorKind

	// UserID is set for ActorUser.
	UserID int64

	// ServiceID identifies the installed service principal for ActorService.
	ServiceID int64

	// IsSuperuser and IsStaff report an actively elevated session. They are
	// only meaningful for ActorUser.
	IsSuperuser bool
	IsStaff     bool

	// Token carries the bearer credential when the caller authenticated with
	// one instead of a session. Nil otherwise.
	Token *AuthenticatedToken
}

// Anonymous returns the identity of an unauthenticated caller.
func Anonymous() Identity {
	return Identity{Kind: ActorAnonymous}
}

// Elevated reports whether the session is actively elevated.
func (i Identity) Elevated() bool {
	return i.Kind == ActorUser && (i.IsSuperuser || i.IsStaff)
}
