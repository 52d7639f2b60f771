// Package auth carries the identity facts that access resolution branches on:
// who the caller is (tagged Identity), the verified bearer credential if any
// (AuthenticatedToken), and the elevation/SSO state read from storage
// (StateService). Authentication itself happens upstream; this package only
// models its already-verified output.
package auth
