package lifecycle

import (
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/models"
)

// Change is a requested write to the status-class fields of an order.
// Nil fields are left untouched.
type Change struct {
	Status         *models.OrderStatus
	PaymentStatus  *models.PaymentStatus
	TransactionID  *string
	TrackingNumber *string
	DeliveredAt    *time.Time
}

func (c Change) Empty() bool {
	return c.Status == nil && c.PaymentStatus == nil && c.TransactionID == nil &&
		c.TrackingNumber == nil && c.DeliveredAt == nil
}

func (c Change) hasExtras() bool {
	return c.PaymentStatus != nil || c.TransactionID != nil || c.TrackingNumber != nil || c.DeliveredAt != nil
}

// Validate checks field values before any row is read. Only admins may set
// fields other than status.
func (c Change) Validate(actor Actor) error {
	fields := map[string]string{}

	if c.Empty() {
		fields["status"] = "at least one field must be provided"
	}
	if c.Status != nil && !c.Status.Valid() {
		fields["status"] = "unknown order status"
	}
	if c.Status == nil && actor != ActorAdmin {
		fields["status"] = "status is required"
	}
	if c.PaymentStatus != nil && !c.PaymentStatus.Valid() {
		fields["payment_status"] = "unknown payment status"
	}
	if c.TransactionID != nil && *c.TransactionID == "" {
		fields["transaction_id"] = "must not be empty"
	}
	if c.Status != nil && *c.Status == models.OrderStatusAwaitingPickup && actor == ActorAdmin {
		fields["status"] = "awaiting_pickup is set by claiming the order"
	}
	if actor != ActorAdmin && c.hasExtras() {
		fields["status"] = "only status may be changed"
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}
