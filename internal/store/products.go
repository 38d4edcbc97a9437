package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/shopspring/decimal"
)

const productColumns = `id, vendor_id, sku, name, description, price, stock_quantity, status, image_url, created_at, updated_at, version`

func scanProduct(row rowScanner) (*models.Product, error) {
	product := &models.Product{}
	err := row.Scan(
		&product.ID,
		&product.VendorID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.StockQuantity,
		&product.Status,
		&product.ImageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	return product, err
}

type NewProduct struct {
	VendorID    int64
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Status      models.ProductStatus
	ImageURL    string
}

func CreateProduct(ctx context.Context, db database.DBTX, p NewProduct) (*models.Product, error) {
	if p.Status == "" {
		p.Status = models.ProductStatusPendingApproval
	}

	query := `
		INSERT INTO products (vendor_id, sku, name, description, price, stock_quantity, status, image_url, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), 1)
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query,
		p.VendorID, p.SKU, p.Name, p.Description, p.Price, p.Stock, p.Status, p.ImageURL))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db database.DBTX, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// LockProduct reads the product row under FOR UPDATE. With noWait a row held
// by another transaction fails immediately with SQLSTATE 55P03.
func LockProduct(ctx context.Context, tx database.DBTX, id int64, noWait bool) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	if noWait {
		query += ` NOWAIT`
	}

	product, err := scanProduct(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product %d: %w", id, err)
	}

	return product, nil
}

// DecrementStock subtracts quantity only while enough stock remains and
// returns the new stock level. It bumps version so an absolute edit based on
// an earlier read fails instead of overwriting the decrement.
func DecrementStock(ctx context.Context, tx database.DBTX, productID int64, quantity int) (int, error) {
	var remaining int
	err := tx.QueryRowContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     version = version + 1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1
		 RETURNING stock_quantity`,
		quantity, productID).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.ErrInsufficientStock
		}
		return 0, fmt.Errorf("decrement stock: %w", err)
	}

	return remaining, nil
}

// SetStockOptimistic writes an absolute stock level if the row still has the
// version the caller read.
func SetStockOptimistic(ctx context.Context, db database.DBTX, productID int64, newStock, version int) (*models.Product, error) {
	query := `
		UPDATE products
		SET stock_quantity = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
		RETURNING ` + productColumns

	product, err := scanProduct(db.QueryRowContext(ctx, query, newStock, productID, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrStaleProduct
		}
		return nil, fmt.Errorf("set stock: %w", err)
	}

	return product, nil
}
