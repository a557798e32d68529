// Package auth carries the caller identity resolved by an external
// authentication step and checks it against the organization a request
// names.
package auth

import (
	"context"
	"fmt"

	"github.com/practicehub/ledger/internal/domain"
)

type contextKey string

const identityKey = contextKey("identity")

// Identity is a resolved caller and the organizations it may act for.
type Identity struct {
	UserID        string
	Organizations []string
}

func (id Identity) MemberOf(orgID string) bool {
	for _, o := range id.Organizations {
		if o == orgID {
			return true
		}
	}
	return false
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// Authorize returns the caller identity if it is present and a member of
// orgID.
func Authorize(ctx context.Context, orgID string) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, fmt.Errorf("no resolved caller identity: %w", domain.ErrAuth)
	}
	if !id.MemberOf(orgID) {
		return Identity{}, fmt.Errorf("user %s is not a member of organization %s: %w", id.UserID, orgID, domain.ErrForbidden)
	}
	return id, nil
}
