package orders

import (
	"context"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/lifecycle"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
)

// GetOrder returns the order and its lines if the principal may see it.
func (s *Service) GetOrder(ctx context.Context, p models.Principal, orderID int64) (*models.Order, error) {
	order, err := store.GetOrder(ctx, s.db, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !lifecycle.CanView(p, order) {
		return nil, apperr.ErrForbidden.WithMessage("not allowed to view order %d", orderID)
	}
	return order, nil
}

func (s *Service) ListOrdersForUser(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	if limit < 1 {
		limit = s.cfg.PageSize
	}
	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	if _, err := store.DecodeCursor(cursor); err != nil {
		return nil, apperr.Validation(map[string]string{"cursor": "is malformed"})
	}

	page, err := store.ListOrdersForUser(ctx, s.db, userID, cursor, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return page, nil
}
