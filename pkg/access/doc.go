// Package access computes effective permissions for catalog resources
// and enforces minimum required levels.
//
// The resolver combines two independent channels for private projects:
// the principal's direct grants and the grants of every group the project
// belongs to. Each channel defaults to None when it has no matching
// grant, and the most permissive of the two wins; direct sharing never
// loses to weaker group-derived access, and vice versa. Samples have no
// access-control list of their own and always delegate to their owning
// project. Public resources are readable by anyone, including anonymous
// callers, at exactly ReadOnly.
//
// Identity is explicit: every resolution takes the Principal as a
// parameter, and a nil Principal is an anonymous caller. There is no
// ambient request-scoped identity.
package access
