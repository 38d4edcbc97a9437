// Package identity resolves the caller of a request. Credentials are checked
// upstream; this service trusts the forwarded user id and loads the role
// from the users table.
package identity

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
)

const HeaderUserID = "X-User-ID"

// UserLookup loads a user by id.
type UserLookup func(ctx context.Context, id int64) (*models.User, error)

type Resolver struct {
	lookup UserLookup
}

func NewResolver(db database.DBTX) *Resolver {
	return &Resolver{lookup: func(ctx context.Context, id int64) (*models.User, error) {
		return store.GetUser(ctx, db, id)
	}}
}

func NewResolverWithLookup(lookup UserLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve turns the raw header value into a principal.
func (r *Resolver) Resolve(ctx context.Context, rawUserID string) (models.Principal, error) {
	rawUserID = strings.TrimSpace(rawUserID)
	if rawUserID == "" {
		return models.Principal{}, apperr.ErrUnauthenticated
	}

	id, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil || id <= 0 {
		return models.Principal{}, apperr.ErrUnauthenticated.WithMessage("malformed user identity")
	}

	user, err := r.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return models.Principal{}, apperr.ErrUnauthenticated.WithMessage("unknown user")
		}
		return models.Principal{}, apperr.Internal(err)
	}
	if !user.Role.Valid() {
		return models.Principal{}, apperr.ErrForbidden.WithMessage("user has no recognised role")
	}

	return models.Principal{UserID: user.ID, Role: user.Role}, nil
}
