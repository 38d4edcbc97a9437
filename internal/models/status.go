package models

import "fmt"

type Role string

const (
	RoleCustomer       Role = "customer"
	RoleVendor         Role = "vendor"
	RoleAdmin          Role = "admin"
	RoleDeliveryPerson Role = "delivery_person"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleVendor, RoleAdmin, RoleDeliveryPerson:
		return true
	}
	return false
}

type ProductStatus string

const (
	ProductStatusActive          ProductStatus = "active"
	ProductStatusPendingApproval ProductStatus = "pending_approval"
	ProductStatusRejected        ProductStatus = "rejected"
	ProductStatusInactive        ProductStatus = "inactive"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusPendingApproval, ProductStatusRejected, ProductStatusInactive:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	ps := PaymentStatus(s)
	if !ps.Valid() {
		return "", fmt.Errorf("unknown payment status %q", s)
	}
	return ps, nil
}

type OrderStatus string

const (
	OrderStatusPendingPayment    OrderStatus = "pending_payment"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusReadyForDelivery  OrderStatus = "ready_for_delivery"
	OrderStatusAwaitingPickup    OrderStatus = "awaiting_pickup"
	OrderStatusOutForDelivery    OrderStatus = "out_for_delivery"
	OrderStatusDeliveryAttempted OrderStatus = "delivery_attempted"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusDeliveryFailed    OrderStatus = "delivery_failed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusFailed            OrderStatus = "failed"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPendingPayment,
	OrderStatusProcessing,
	OrderStatusReadyForDelivery,
	OrderStatusAwaitingPickup,
	OrderStatusOutForDelivery,
	OrderStatusDeliveryAttempted,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusDeliveryFailed,
	OrderStatusCancelled,
	OrderStatusRefunded,
	OrderStatusFailed,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}

// DefaultAssignedStatuses is the agent work queue shown when no filter is given.
var DefaultAssignedStatuses = []OrderStatus{
	OrderStatusAwaitingPickup,
	OrderStatusOutForDelivery,
	OrderStatusDeliveryAttempted,
}
