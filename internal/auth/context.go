package auth

import (
	"context"
	"errors"
	"slices"
)

// Identity is the authenticated caller as seen by handlers and services.
type Identity struct {
	UserID      string
	Company     string
	Role        string
	Permissions []string
}

// Has reports whether perm was granted explicitly in the token.
func (id Identity) Has(perm string) bool {
	return slices.Contains(id.Permissions, perm)
}

type ctxKey int

const ctxIdentity ctxKey = iota

var ErrNoIdentity = errors.New("identity not in context")

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxIdentity).(Identity); ok && id.UserID != "" {
		return id, nil
	}
	return Identity{}, ErrNoIdentity
}

func UserID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", errors.New("user_id not in context")
	}
	return id.UserID, nil
}

func Role(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil || id.Role == "" {
		return "", errors.New("role not in context")
	}
	return id.Role, nil
}

// Company returns the caller's tenant; empty for BPO staff.
func Company(ctx context.Context) string {
	id, _ := IdentityFrom(ctx)
	return id.Company
}
