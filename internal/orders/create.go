package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/inventory"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const transactionIDConstraint = "orders_transaction_id_key"

type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateOrderRequest struct {
	Items                 []CartLine      `json:"items"`
	ShippingAddress       *models.Address `json:"shipping_address"`
	BillingAddress        *models.Address `json:"billing_address,omitempty"`
	PaymentMethod         string          `json:"payment_method"`
	ShippingMethod        string          `json:"shipping_method,omitempty"`
	ShippingCost          decimal.Decimal `json:"shipping_cost"`
	Currency              string          `json:"currency,omitempty"`
	TransactionID         *string         `json:"transaction_id,omitempty"`
	NotesToVendor         string          `json:"notes_to_vendor,omitempty"`
	EstimatedDeliveryDate *time.Time      `json:"estimated_delivery_date,omitempty"`
}

func validateCreate(req CreateOrderRequest, now time.Time) map[string]string {
	fields := map[string]string{}

	if len(req.Items) == 0 {
		fields["items"] = "must contain at least one item"
	}
	seen := make(map[int64]bool, len(req.Items))
	for i, item := range req.Items {
		switch {
		case item.ProductID <= 0:
			fields[fmt.Sprintf("items[%d].product_id", i)] = "must be a positive id"
		case item.Quantity < 1:
			fields[fmt.Sprintf("items[%d].quantity", i)] = "must be at least 1"
		case seen[item.ProductID]:
			fields[fmt.Sprintf("items[%d].product_id", i)] = "duplicate product in cart"
		}
		seen[item.ProductID] = true
	}

	if req.ShippingAddress == nil {
		fields["shipping_address"] = "is required"
	} else {
		for _, f := range req.ShippingAddress.MissingFields() {
			fields["shipping_address."+f] = "is required"
		}
	}
	if req.BillingAddress != nil {
		for _, f := range req.BillingAddress.MissingFields() {
			fields["billing_address."+f] = "is required"
		}
	}

	if req.ShippingCost.IsNegative() {
		fields["shipping_cost"] = "must not be negative"
	}
	if req.ShippingCost.Exponent() < -2 {
		fields["shipping_cost"] = "must have at most two decimal places"
	}
	if req.Currency != "" && !models.ValidCurrency(strings.ToUpper(req.Currency)) {
		fields["currency"] = "must be a 3-letter code"
	}
	if req.TransactionID != nil && strings.TrimSpace(*req.TransactionID) == "" {
		fields["transaction_id"] = "must not be empty"
	}
	if req.EstimatedDeliveryDate != nil && req.EstimatedDeliveryDate.Before(truncateDay(now)) {
		fields["estimated_delivery_date"] = "must not be in the past"
	}

	return fields
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// orderTotal is the sum of line subtotals plus shipping.
func orderTotal(lines []models.OrderLine, shipping decimal.Decimal) decimal.Decimal {
	total := shipping
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (s *Service) newOrderNumber() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("ORD-%s-%s", s.now().UTC().Format("20060102"), id[:10])
}

// constraintError reports integrity violations on the inserted rows as a bad
// request. They only fire when a referenced row vanished after the cart was
// checked, or on values validateCreate does not bound.
func constraintError(err error) error {
	switch {
	case database.IsForeignKeyViolation(err):
		return apperr.Validation(map[string]string{"order": "references a user or product that no longer exists"}).WithCause(err)
	case database.IsCheckViolation(err):
		return apperr.Validation(map[string]string{"order": "violates a data constraint"}).WithCause(err)
	}
	return err
}

// CreateOrder validates and prices the cart and persists the order, its lines
// and every stock decrement in one transaction. Nothing is written unless all
// of it succeeds.
func (s *Service) CreateOrder(ctx context.Context, p models.Principal, req CreateOrderRequest) (*models.Order, error) {
	start := s.now()

	if fields := validateCreate(req, start); len(fields) > 0 {
		s.metrics.OrderCreated("validation", time.Since(start))
		return nil, apperr.Validation(fields)
	}

	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	cart := make([]inventory.Line, len(req.Items))
	for i, item := range req.Items {
		cart[i] = inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	var order *models.Order
	err := database.WithTransaction(ctx, s.db, s.txOpts, func(ctx context.Context, tx *sql.Tx) error {
		reservations, err := s.guard.Check(ctx, tx, cart)
		if err != nil {
			return err
		}

		lines := make([]models.OrderLine, len(reservations))
		for i, r := range reservations {
			lines[i] = models.OrderLine{
				ProductID:       r.Product.ID,
				VendorID:        r.Product.VendorID,
				Quantity:        r.Quantity,
				PriceAtPurchase: r.Product.Price,
				ProductName:     r.Product.Name,
				ProductSKU:      r.Product.SKU,
				ProductImageURL: r.Product.ImageURL,
			}
		}

		order = &models.Order{
			OrderNumber:           s.newOrderNumber(),
			UserID:                p.UserID,
			TotalAmount:           orderTotal(lines, req.ShippingCost),
			Currency:              currency,
			ShippingAddress:       *req.ShippingAddress,
			BillingAddress:        req.BillingAddress,
			PaymentMethod:         req.PaymentMethod,
			PaymentStatus:         models.PaymentStatusPending,
			TransactionID:         req.TransactionID,
			ShippingMethod:        req.ShippingMethod,
			ShippingCost:          req.ShippingCost,
			NotesToVendor:         req.NotesToVendor,
			Status:                models.OrderStatusPendingPayment,
			EstimatedDeliveryDate: req.EstimatedDeliveryDate,
		}
		if err := store.InsertOrder(ctx, tx, order); err != nil {
			if database.IsUniqueViolation(err, transactionIDConstraint) {
				return apperr.ErrDuplicateTxID.WithCause(err)
			}
			return constraintError(err)
		}

		order.Lines, err = store.InsertOrderLines(ctx, tx, order.ID, lines)
		if err != nil {
			return constraintError(err)
		}

		return s.guard.Apply(ctx, tx, reservations)
	})
	if err != nil {
		outcome := string(apperr.KindOf(err))
		s.metrics.OrderCreated(outcome, time.Since(start))
		if apperr.KindOf(err) == apperr.KindInternal {
			s.logger.Error("order_create_failed", zap.Int64("user_id", p.UserID), zap.Error(err))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.ErrInternal.WithMessage("order could not be placed in time").WithCause(err)
		}
		return nil, apperr.Internal(err)
	}

	s.metrics.OrderCreated("success", time.Since(start))
	s.logger.Info("order_created",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", p.UserID),
		zap.Int("lines", len(order.Lines)),
		zap.String("total", order.TotalAmount.StringFixed(2)))
	return order, nil
}
