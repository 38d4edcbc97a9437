package inventory

import (
	"context"
	"errors"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
	"go.uber.org/zap"
)

// StockService handles absolute stock edits by vendors and admins.
type StockService struct {
	db     database.DBTX
	logger *zap.Logger
}

func NewStockService(db database.DBTX, logger *zap.Logger) *StockService {
	return &StockService{db: db, logger: logger.Named("stock")}
}

// SetStock replaces the stock level of a product. expectedVersion must be
// the version the caller last read; a decrement or edit since then makes the
// write fail with a conflict instead of silently discarding it.
func (s *StockService) SetStock(ctx context.Context, p models.Principal, productID int64, newStock, expectedVersion int) (*models.Product, error) {
	if newStock < 0 {
		return nil, apperr.Validation(map[string]string{"stock_quantity": "must not be negative"})
	}
	if expectedVersion < 1 {
		return nil, apperr.Validation(map[string]string{"version": "is required"})
	}

	product, err := store.GetProduct(ctx, s.db, productID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	switch p.Role {
	case models.RoleAdmin:
	case models.RoleVendor:
		if product.VendorID != p.UserID {
			return nil, apperr.ErrForbidden.WithMessage("product %d belongs to another vendor", productID)
		}
	default:
		return nil, apperr.ErrForbidden
	}

	updated, err := store.SetStockOptimistic(ctx, s.db, productID, newStock, expectedVersion)
	if err != nil {
		if errors.Is(err, apperr.ErrStaleProduct) {
			s.logger.Info("stock_edit_conflict",
				zap.Int64("product_id", productID),
				zap.Int("expected_version", expectedVersion),
				zap.Int64("user_id", p.UserID))
		}
		return nil, apperr.Internal(err)
	}

	s.logger.Info("stock_set",
		zap.Int64("product_id", productID),
		zap.Int("stock_quantity", updated.StockQuantity),
		zap.Int64("user_id", p.UserID))
	return updated, nil
}
