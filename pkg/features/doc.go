// Package features is the organization-capability gate consulted by access
// resolution. It is deliberately small: one interface and a static
// config-backed implementation. Deployments with a real flagging system plug
// their own Gate in.
package features
