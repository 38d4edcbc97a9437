package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/lib/pq"
)

const orderColumns = `id, order_number, user_id, total_amount, currency, shipping_address, billing_address,
	payment_method, payment_status, transaction_id, shipping_method, shipping_cost, notes_to_vendor,
	status, delivery_person_id, tracking_number, delivered_at, estimated_delivery_date,
	created_at, updated_at, version`

const lineColumns = `id, order_id, product_id, vendor_id, quantity, price_at_purchase,
	product_name, product_sku, product_image_url, item_status, created_at`

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	var billing models.NullAddress
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.TotalAmount,
		&order.Currency,
		&order.ShippingAddress,
		&billing,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.TransactionID,
		&order.ShippingMethod,
		&order.ShippingCost,
		&order.NotesToVendor,
		&order.Status,
		&order.DeliveryPersonID,
		&order.TrackingNumber,
		&order.DeliveredAt,
		&order.EstimatedDeliveryDate,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Version,
	)
	if err != nil {
		return nil, err
	}
	order.BillingAddress = billing.Address
	return order, nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// InsertOrder writes the order header and fills in the generated columns.
func InsertOrder(ctx context.Context, tx database.DBTX, order *models.Order) error {
	query := `
		INSERT INTO orders (order_number, user_id, total_amount, currency, shipping_address, billing_address,
		                    payment_method, payment_status, transaction_id, shipping_method, shipping_cost,
		                    notes_to_vendor, status, estimated_delivery_date, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW(), 1)
		RETURNING ` + orderColumns

	created, err := scanOrder(tx.QueryRowContext(ctx, query,
		order.OrderNumber,
		order.UserID,
		order.TotalAmount,
		order.Currency,
		order.ShippingAddress,
		models.NullAddress{Address: order.BillingAddress},
		order.PaymentMethod,
		order.PaymentStatus,
		order.TransactionID,
		order.ShippingMethod,
		order.ShippingCost,
		order.NotesToVendor,
		order.Status,
		order.EstimatedDeliveryDate,
	))
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	*order = *created
	return nil
}

// InsertOrderLines writes all lines of an order in a single statement.
func InsertOrderLines(ctx context.Context, tx database.DBTX, orderID int64, lines []models.OrderLine) ([]models.OrderLine, error) {
	if len(lines) == 0 {
		return nil, errors.New("insert order lines: no lines")
	}

	productIDs := make([]int64, len(lines))
	vendorIDs := make([]int64, len(lines))
	quantities := make([]int64, len(lines))
	prices := make([]string, len(lines))
	names := make([]string, len(lines))
	skus := make([]string, len(lines))
	images := make([]string, len(lines))
	for i, line := range lines {
		productIDs[i] = line.ProductID
		vendorIDs[i] = line.VendorID
		quantities[i] = int64(line.Quantity)
		prices[i] = line.PriceAtPurchase.String()
		names[i] = line.ProductName
		skus[i] = line.ProductSKU
		images[i] = line.ProductImageURL
	}

	query := `
		INSERT INTO order_items (order_id, product_id, vendor_id, quantity, price_at_purchase,
		                         product_name, product_sku, product_image_url, item_status, created_at, updated_at)
		SELECT $1, u.product_id, u.vendor_id, u.quantity, u.price, u.name, u.sku, u.image, $2, NOW(), NOW()
		FROM unnest($3::bigint[], $4::bigint[], $5::int[], $6::numeric[], $7::text[], $8::text[], $9::text[])
		     AS u(product_id, vendor_id, quantity, price, name, sku, image)
		RETURNING ` + lineColumns

	rows, err := tx.QueryContext(ctx, query,
		orderID,
		models.ItemStatusPending,
		pq.Array(productIDs),
		pq.Array(vendorIDs),
		pq.Array(quantities),
		pq.Array(prices),
		pq.Array(names),
		pq.Array(skus),
		pq.Array(images),
	)
	if err != nil {
		return nil, fmt.Errorf("insert order lines: %w", err)
	}

	inserted, err := scanLines(rows)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int64]models.OrderLine, len(inserted))
	for _, line := range inserted {
		byProduct[line.ProductID] = line
	}

	// Return lines in cart order.
	out := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		got, ok := byProduct[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("insert order lines: product %d missing from result", line.ProductID)
		}
		out = append(out, got)
	}

	return out, nil
}

func scanLines(rows *sql.Rows) ([]models.OrderLine, error) {
	defer rows.Close()

	lines := []models.OrderLine{}
	for rows.Next() {
		var line models.OrderLine
		err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.VendorID,
			&line.Quantity,
			&line.PriceAtPurchase,
			&line.ProductName,
			&line.ProductSKU,
			&line.ProductImageURL,
			&line.ItemStatus,
			&line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

func ListOrderLines(ctx context.Context, db database.DBTX, orderID int64) ([]models.OrderLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	return scanLines(rows)
}

// GetOrder loads the order with its lines.
func GetOrder(ctx context.Context, db database.DBTX, id int64) (*models.Order, error) {
	order, err := scanOrder(db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	order.Lines, err = ListOrderLines(ctx, db, id)
	if err != nil {
		return nil, err
	}

	return order, nil
}

// LockOrder reads the order header under FOR UPDATE.
func LockOrder(ctx context.Context, tx database.DBTX, id int64) (*models.Order, error) {
	order, err := scanOrder(tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return order, nil
}

func OrderExists(ctx context.Context, db database.DBTX, id int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return exists, nil
}

func ListOrdersForUser(ctx context.Context, db database.DBTX, userID int64, cursor string, limit int) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListClaimableOrders pages through unassigned delivery-ready orders, oldest first.
func ListClaimableOrders(ctx context.Context, db database.DBTX, page Page) (*OffsetPage[models.Order], error) {
	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE status = $1 AND delivery_person_id IS NULL`,
		models.OrderStatusReadyForDelivery).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count claimable orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1 AND delivery_person_id IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3`

	rows, err := db.QueryContext(ctx, query, models.OrderStatusReadyForDelivery, page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list claimable orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(orders, total, page.Number, page.Size), nil
}

// ListOrdersForAgent pages through orders assigned to the agent in any of the statuses.
func ListOrdersForAgent(ctx context.Context, db database.DBTX, agentID int64, statuses []models.OrderStatus, page Page) (*OffsetPage[models.Order], error) {
	filter := make([]string, len(statuses))
	for i, s := range statuses {
		filter[i] = string(s)
	}

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE delivery_person_id = $1 AND status = ANY($2)`,
		agentID, pq.Array(filter)).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count agent orders: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE delivery_person_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC, id ASC
		LIMIT $3 OFFSET $4`

	rows, err := db.QueryContext(ctx, query, agentID, pq.Array(filter), page.Size, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list agent orders: %w", err)
	}

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	return newOffsetPage(orders, total, page.Number, page.Size), nil
}

// StatusUpdate describes a conditional write to the status-class columns.
// The row only changes while its status is still From.
type StatusUpdate struct {
	From           models.OrderStatus
	To             models.OrderStatus
	PaymentStatus  *models.PaymentStatus
	TransactionID  *string
	TrackingNumber *string
	DeliveredAt    *time.Time
	// StampDelivered sets delivered_at to the transaction time.
	StampDelivered bool
	// AssignedTo additionally requires delivery_person_id to match.
	AssignedTo *int64
}

// UpdateOrderStatus applies the update. It returns sql.ErrNoRows when the
// row no longer matches From or AssignedTo.
func UpdateOrderStatus(ctx context.Context, tx database.DBTX, orderID int64, u StatusUpdate) (*models.Order, error) {
	query := `
		UPDATE orders
		SET status = $3,
		    payment_status = COALESCE($4, payment_status),
		    transaction_id = COALESCE($5, transaction_id),
		    tracking_number = COALESCE($6, tracking_number),
		    delivered_at = CASE WHEN $7::boolean THEN NOW() ELSE COALESCE($8::timestamptz, delivered_at) END,
		    updated_at = NOW(),
		    version = version + 1
		WHERE id = $1
		  AND status = $2
		  AND ($9::bigint IS NULL OR delivery_person_id = $9)
		RETURNING ` + orderColumns

	order, err := scanOrder(tx.QueryRowContext(ctx, query,
		orderID,
		u.From,
		u.To,
		u.PaymentStatus,
		u.TransactionID,
		u.TrackingNumber,
		u.StampDelivered,
		u.DeliveredAt,
		u.AssignedTo,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}

	return order, nil
}

// ClaimOrder assigns the agent in one conditional UPDATE. Of any number of
// concurrent callers at most one gets a row back.
func ClaimOrder(ctx context.Context, db database.DBTX, orderID, agentID int64) (*models.Order, error) {
	query := `
		UPDATE orders
		SET delivery_person_id = $2,
		    status = $3,
		    updated_at = NOW(),
		    version = version + 1
		WHERE id = $1
		  AND status = $4
		  AND delivery_person_id IS NULL
		RETURNING ` + orderColumns

	order, err := scanOrder(db.QueryRowContext(ctx, query,
		orderID, agentID, models.OrderStatusAwaitingPickup, models.OrderStatusReadyForDelivery))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim order: %w", err)
	}

	exists, err := OrderExists(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.ErrOrderNotFound
	}
	return nil, apperr.ErrOrderNotClaimable
}

// LockDeliveredBefore locks up to limit delivered orders whose delivered_at
// is at or before cutoff. Rows locked by other workers are skipped.
func LockDeliveredBefore(ctx context.Context, tx database.DBTX, cutoff time.Time, limit int) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1
		  AND delivered_at <= $2
		ORDER BY delivered_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`

	rows, err := tx.QueryContext(ctx, query, models.OrderStatusDelivered, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("lock delivered orders: %w", err)
	}
	return scanOrders(rows)
}
