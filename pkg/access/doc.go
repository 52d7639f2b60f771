// Package access is the authorization core: it turns an authenticated
// calling context into an immutable per-request Access evaluator answering
// what the caller may do in an organization.
//
// The Resolver inspects the calling context in a fixed order (missing org,
// service principal, active elevation, bearer credential, plain membership)
// and constructs the matching variant. Every variant implements the Access
// interface; callers branch on answers, never on the concrete type.
//
// Evaluators are single-owner: built once per request, queried for the rest
// of that request, never shared across goroutines. Derived sets (team and
// project reachability) are loaded lazily and memoized for the evaluator's
// lifetime, so answers stay identical even if storage changes mid-request.
//
// Lookup failures on optional data fail closed. Missing memberships degrade
// to lower-privilege variants; the only error the resolver surfaces is
// misconfiguration, a stored role id that is not registered.
package access
