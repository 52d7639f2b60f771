// Package api exposes access resolution as an HTTP service. Callers present
// an authenticated identity and ask what they can do in an organization; the
// answers come from the per-request evaluator built by pkg/access, never from
// raw membership rows.
package api
