// Package audit records authorization decisions worth keeping: denied scope
// and permission checks, and optionally every access resolution. The trail
// is append-only JSON lines, one entry per decision.
package audit
