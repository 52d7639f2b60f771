// Package roles defines the static role registry: the mapping from role
// identifiers to scope sets and the is_global flag.
//
// The registry is consulted, never mutated, on the request path. Built-in
// organization roles (billing, member, admin, manager, owner) and team roles
// (contributor, admin) cover the common cases; deployments can add or replace
// roles through a YAML file that is hot-reloaded via fsnotify.
//
// An unknown role id returned from a lookup is not an error by itself -
// callers treat it as "no scopes". When stored membership data references an
// unregistered role, that is data corruption and pkg/access surfaces it as an
// UnknownRoleError rather than silently downgrading.
package roles
