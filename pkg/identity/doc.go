// Package identity validates caller credentials against the central
// identity provider and maps them to catalog principals. Token issuance
// and session management live in the provider; this package only
// consumes its validation endpoint.
package identity
