package auth

import (
	"errors"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/rbac"
)

var ErrForbidden = errors.New("forbidden")

// AccountPolicy is the attribute check for per-account endpoints: callers act on themselves,
// administrators on anyone.
type AccountPolicy struct{}

func (p AccountPolicy) CanActOn(principal *internal.Principal, username string) error {
	if principal == nil {
		return ErrForbidden
	}
	if rbac.IsAdmin(principal.RoleID) {
		return nil
	}
	if username == "" || principal.Username == username {
		return nil
	}
	return ErrForbidden
}
