package auth

// AuthContext carries the verified identity of the caller, resolved once at
// the transport boundary and passed explicitly to every guarded operation.
// There is no ambient authentication state.
type AuthContext struct {
	// Identity is the verified user id from a valid token, nil for
	// anonymous callers.
	Identity *string

	// Admin marks operator contexts (local CLI, trusted wiring).
	Admin bool
}

// Anonymous is the context of an unauthenticated caller.
func Anonymous() AuthContext {
	return AuthContext{}
}

// Identified builds a context for a verified user id.
func Identified(userID string) AuthContext {
	return AuthContext{Identity: &userID}
}

// Operator builds an admin context.
func Operator() AuthContext {
	return AuthContext{Admin: true}
}
