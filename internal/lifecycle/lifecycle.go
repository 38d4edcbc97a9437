// Package lifecycle holds the order state machine: which status edges each
// kind of actor may take and which orders that actor may touch at all.
package lifecycle

import (
	"strings"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/models"
)

type Actor string

const (
	ActorAdmin    Actor = "admin"
	ActorVendor   Actor = "vendor"
	ActorDelivery Actor = "delivery"
	// ActorSystem drives automated payment and fulfilment hooks.
	ActorSystem Actor = "system"
)

// Table maps a source status to the targets reachable from it.
type Table map[models.OrderStatus][]models.OrderStatus

func (t Table) Allows(from, to models.OrderStatus) bool {
	for _, target := range t[from] {
		if target == to {
			return true
		}
	}
	return false
}

var adminTable = Table{
	models.OrderStatusPendingPayment: {
		models.OrderStatusProcessing, models.OrderStatusCancelled, models.OrderStatusFailed,
	},
	models.OrderStatusProcessing: {
		models.OrderStatusReadyForDelivery, models.OrderStatusCancelled, models.OrderStatusRefunded, models.OrderStatusFailed,
	},
	models.OrderStatusReadyForDelivery: {
		models.OrderStatusProcessing, models.OrderStatusCancelled, models.OrderStatusRefunded,
	},
	models.OrderStatusAwaitingPickup: {
		models.OrderStatusCancelled, models.OrderStatusDeliveryFailed,
	},
	models.OrderStatusOutForDelivery: {
		models.OrderStatusDelivered, models.OrderStatusDeliveryFailed, models.OrderStatusDeliveryAttempted,
	},
	models.OrderStatusDeliveryAttempted: {
		models.OrderStatusOutForDelivery, models.OrderStatusDelivered, models.OrderStatusDeliveryFailed,
	},
	models.OrderStatusDeliveryFailed: {
		models.OrderStatusCancelled, models.OrderStatusRefunded,
	},
	models.OrderStatusDelivered: {
		models.OrderStatusCompleted, models.OrderStatusRefunded,
	},
	models.OrderStatusCompleted: {models.OrderStatusRefunded},
	models.OrderStatusCancelled: {models.OrderStatusRefunded},
}

var vendorTable = Table{
	models.OrderStatusProcessing: {models.OrderStatusReadyForDelivery},
}

var deliveryTable = Table{
	models.OrderStatusAwaitingPickup: {
		models.OrderStatusOutForDelivery, models.OrderStatusDeliveryFailed,
	},
	models.OrderStatusOutForDelivery: {
		models.OrderStatusDelivered, models.OrderStatusDeliveryFailed, models.OrderStatusDeliveryAttempted,
	},
	models.OrderStatusDeliveryAttempted: {
		models.OrderStatusOutForDelivery, models.OrderStatusDelivered, models.OrderStatusDeliveryFailed,
	},
}

var systemTable = Table{
	models.OrderStatusPendingPayment: {models.OrderStatusProcessing, models.OrderStatusFailed},
	models.OrderStatusDelivered:      {models.OrderStatusCompleted},
}

func TableFor(actor Actor) Table {
	switch actor {
	case ActorAdmin:
		return adminTable
	case ActorVendor:
		return vendorTable
	case ActorDelivery:
		return deliveryTable
	case ActorSystem:
		return systemTable
	}
	return nil
}

// ActorForRole maps a caller role to the actor class it transitions as.
// Customers have no transition rights.
func ActorForRole(role models.Role) (Actor, bool) {
	switch role {
	case models.RoleAdmin:
		return ActorAdmin, true
	case models.RoleVendor:
		return ActorVendor, true
	case models.RoleDeliveryPerson:
		return ActorDelivery, true
	}
	return "", false
}

// Targets lists statuses the actor may move an order to from the given status.
func Targets(actor Actor, from models.OrderStatus) []models.OrderStatus {
	return TableFor(actor)[from]
}

// IsTerminal reports whether the actor has no outgoing edge from status.
func IsTerminal(actor Actor, status models.OrderStatus) bool {
	return len(TableFor(actor)[status]) == 0
}

func CheckTransition(actor Actor, from, to models.OrderStatus) error {
	if !to.Valid() {
		return apperr.Validation(map[string]string{"status": "unknown order status"})
	}
	if TableFor(actor).Allows(from, to) {
		return nil
	}
	if IsTerminal(actor, from) {
		return apperr.ErrInvalidTransition.WithMessage("%s cannot change an order that is %s", actor, from)
	}
	targets := Targets(actor, from)
	allowed := make([]string, len(targets))
	for i, t := range targets {
		allowed[i] = string(t)
	}
	return apperr.ErrInvalidTransition.WithMessage("cannot move order from %s to %s, allowed: %s",
		from, to, strings.Join(allowed, ", "))
}

// Authorize checks the actor may act on the order at all. Vendor checks
// need the order lines loaded.
func Authorize(actor Actor, p models.Principal, order *models.Order) error {
	switch actor {
	case ActorAdmin, ActorSystem:
		return nil
	case ActorDelivery:
		if order.AssignedTo(p.UserID) {
			return nil
		}
		return apperr.ErrForbidden.WithMessage("order %d is not assigned to you", order.ID)
	case ActorVendor:
		if order.HasVendor(p.UserID) {
			return nil
		}
		return apperr.ErrForbidden.WithMessage("order %d has no items from your store", order.ID)
	}
	return apperr.ErrForbidden
}

// CanView reports whether the principal may read the order. Lines must be loaded.
func CanView(p models.Principal, order *models.Order) bool {
	switch {
	case p.Role == models.RoleAdmin:
		return true
	case order.UserID == p.UserID:
		return true
	case p.Role == models.RoleDeliveryPerson:
		return order.AssignedTo(p.UserID)
	case p.Role == models.RoleVendor:
		return order.HasVendor(p.UserID)
	}
	return false
}
