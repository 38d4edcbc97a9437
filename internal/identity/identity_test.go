package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(users map[int64]*models.User) UserLookup {
	return func(ctx context.Context, id int64) (*models.User, error) {
		if u, ok := users[id]; ok {
			return u, nil
		}
		return nil, apperr.ErrUserNotFound
	}
}

func TestResolve(t *testing.T) {
	r := NewResolverWithLookup(lookupFrom(map[int64]*models.User{
		7: {ID: 7, Role: models.RoleDeliveryPerson},
		8: {ID: 8, Role: models.Role("intern")},
	}))

	p, err := r.Resolve(context.Background(), " 7 ")
	require.NoError(t, err)
	assert.Equal(t, models.Principal{UserID: 7, Role: models.RoleDeliveryPerson}, p)

	for _, raw := range []string{"", "abc", "-1", "99"} {
		_, err := r.Resolve(context.Background(), raw)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated, raw)
	}

	_, err = r.Resolve(context.Background(), "8")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestResolveStorageFailure(t *testing.T) {
	r := NewResolverWithLookup(func(ctx context.Context, id int64) (*models.User, error) {
		return nil, errors.New("connection reset")
	})

	_, err := r.Resolve(context.Background(), "1")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}
