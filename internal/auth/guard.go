package auth

import (
	appErr "github.com/algorithm-ninja/task-wizard/pkg/errors"
)

// Guard decides whether a caller may perform an operation.
//
// SkipAuth disables all checks (single-operator local deployments). With an
// empty Secret no tokens can be verified and user operations are open; with
// a Secret set, user operations require a verified identity matching the
// target user.
type Guard struct {
	SkipAuth bool
	Secret   []byte
}

// AuthorizeAdmin allows administrative operations. Only skip-auth mode and
// trusted operator contexts qualify; no token grants admin rights.
func (g Guard) AuthorizeAdmin(a AuthContext) error {
	if g.SkipAuth || a.Admin {
		return nil
	}
	return appErr.ForbiddenError("")
}

// AuthorizeUser allows operations on behalf of target.
// A nil target means the operation is not user-scoped and is always allowed.
func (g Guard) AuthorizeUser(a AuthContext, target *string) error {
	if g.SkipAuth {
		return nil
	}
	if target == nil {
		return nil
	}
	if len(g.Secret) == 0 {
		return nil
	}
	if a.Identity == nil {
		return appErr.AuthRequiredError("")
	}
	if *a.Identity != *target {
		return appErr.ForbiddenError("forbidden for the given user id")
	}
	return nil
}
