package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Product struct {
	ID            int64           `json:"id"`
	VendorID      int64           `json:"vendor_id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Status        ProductStatus   `json:"status"`
	ImageURL      string          `json:"image_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

type Order struct {
	ID                    int64           `json:"id"`
	OrderNumber           string          `json:"order_number"`
	UserID                int64           `json:"user_id"`
	TotalAmount           decimal.Decimal `json:"total_amount"`
	Currency              string          `json:"currency"`
	ShippingAddress       Address         `json:"shipping_address"`
	BillingAddress        *Address        `json:"billing_address,omitempty"`
	PaymentMethod         string          `json:"payment_method"`
	PaymentStatus         PaymentStatus   `json:"payment_status"`
	TransactionID         *string         `json:"transaction_id,omitempty"`
	ShippingMethod        string          `json:"shipping_method,omitempty"`
	ShippingCost          decimal.Decimal `json:"shipping_cost"`
	NotesToVendor         string          `json:"notes_to_vendor,omitempty"`
	Status                OrderStatus     `json:"status"`
	DeliveryPersonID      *int64          `json:"delivery_person_id,omitempty"`
	TrackingNumber        *string         `json:"tracking_number,omitempty"`
	DeliveredAt           *time.Time      `json:"delivered_at,omitempty"`
	EstimatedDeliveryDate *time.Time      `json:"estimated_delivery_date,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	Version               int             `json:"version"`
	Lines                 []OrderLine     `json:"items,omitempty"`
}

// AssignedTo reports whether the order is held by the given delivery agent.
func (o *Order) AssignedTo(agentID int64) bool {
	return o.DeliveryPersonID != nil && *o.DeliveryPersonID == agentID
}

// HasVendor reports whether any loaded line belongs to the vendor.
func (o *Order) HasVendor(vendorID int64) bool {
	for _, line := range o.Lines {
		if line.VendorID == vendorID {
			return true
		}
	}
	return false
}

type OrderLine struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	ProductID       int64           `json:"product_id"`
	VendorID        int64           `json:"vendor_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	ProductName     string          `json:"product_name"`
	ProductSKU      string          `json:"product_sku"`
	ProductImageURL string          `json:"product_image_url,omitempty"`
	ItemStatus      string          `json:"item_status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Subtotal is price_at_purchase multiplied by quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.PriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

const ItemStatusPending = "pending"

// Principal is the authenticated caller.
type Principal struct {
	UserID int64
	Role   Role
}
