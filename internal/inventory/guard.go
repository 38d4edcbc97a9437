// Package inventory validates cart lines against live stock and applies the
// decrements, always inside the caller's transaction.
package inventory

import (
	"context"
	"errors"
	"sort"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/metrics"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
)

type Line struct {
	ProductID int64
	Quantity  int
}

// Reservation is a locked, validated product with the quantity to take.
type Reservation struct {
	Product  models.Product
	Quantity int
}

type Guard struct {
	noWait  bool
	metrics *metrics.Metrics
}

func NewGuard(noWait bool, m *metrics.Metrics) *Guard {
	return &Guard{noWait: noWait, metrics: m}
}

// Check locks every product row and validates availability and stock.
// Rows are locked in ascending id order so concurrent carts sharing products
// cannot deadlock. Reservations come back in the order of lines.
func (g *Guard) Check(ctx context.Context, tx database.DBTX, lines []Line) ([]Reservation, error) {
	if len(lines) == 0 {
		return nil, apperr.Validation(map[string]string{"items": "must not be empty"})
	}

	index := make(map[int64]int, len(lines))
	for i, line := range lines {
		if line.Quantity < 1 {
			return nil, apperr.Validation(map[string]string{"items": "quantity must be at least 1"})
		}
		if _, dup := index[line.ProductID]; dup {
			return nil, apperr.Validation(map[string]string{"items": "each product may appear only once"})
		}
		index[line.ProductID] = i
	}

	ids := make([]int64, 0, len(lines))
	for id := range index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Reservation, len(lines))
	for _, id := range ids {
		line := lines[index[id]]

		product, err := store.LockProduct(ctx, tx, id, g.noWait)
		if err != nil {
			return nil, g.reject(g.lockError(id, err))
		}

		if product.Status != models.ProductStatusActive {
			return nil, g.reject(apperr.ErrProductUnavailable.WithMessage(
				"product %q is not available for purchase", product.Name))
		}

		if product.StockQuantity < line.Quantity {
			return nil, g.reject(apperr.ErrInsufficientStock.WithMessage(
				"insufficient stock for %q: requested %d, available %d",
				product.Name, line.Quantity, product.StockQuantity))
		}

		out[index[id]] = Reservation{Product: *product, Quantity: line.Quantity}
	}

	return out, nil
}

// Apply decrements stock for each reservation with a floor-checked UPDATE.
func (g *Guard) Apply(ctx context.Context, tx database.DBTX, reservations []Reservation) error {
	for _, r := range reservations {
		if _, err := store.DecrementStock(ctx, tx, r.Product.ID, r.Quantity); err != nil {
			if errors.Is(err, apperr.ErrInsufficientStock) {
				return g.reject(apperr.ErrInsufficientStock.WithMessage(
					"insufficient stock for %q", r.Product.Name))
			}
			return err
		}
	}
	return nil
}

func (g *Guard) lockError(id int64, err error) error {
	switch {
	case errors.Is(err, apperr.ErrProductNotFound):
		return apperr.ErrCartProductNotFound.WithMessage("product %d not found", id)
	case database.IsLockNotAvailable(err):
		return apperr.ErrStockLocked.WithCause(err)
	}
	return err
}

func (g *Guard) reject(err error) error {
	g.metrics.InventoryRejected(apperr.As(err).Code)
	return err
}
