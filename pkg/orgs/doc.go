// Package orgs holds the organization, team, project, and membership model
// and the stores that read it.
//
// MembershipStore is the read interface the access engine depends on; the
// PostgresStore implementation answers each method with one bounded query.
// CachedMembershipStore wraps any MembershipStore with a two-tier cache
// (in-process LRU plus Redis) so hot request paths do not hit PostgreSQL
// for every access resolution.
package orgs
