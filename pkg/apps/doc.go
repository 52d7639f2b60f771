// Package apps tracks service-principal installations: which integrations an
// organization has granted access to, and with what scopes.
package apps
