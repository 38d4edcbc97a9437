// Package delivery hands delivery-ready orders to exactly one agent and lets
// that agent drive the delivery sub-states.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/config"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/lifecycle"
	"github.com/Stephi-25/Odjassa/internal/metrics"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
	"go.uber.org/zap"
)

// Transitioner is the order status write path.
type Transitioner interface {
	Transition(ctx context.Context, actor lifecycle.Actor, p models.Principal, orderID int64, change lifecycle.Change) (*models.Order, error)
}

type Coordinator struct {
	db           database.DBTX
	transitioner Transitioner
	timeout      time.Duration
	pages        config.OrdersConfig
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func NewCoordinator(db database.DBTX, t Transitioner, timeout time.Duration, pages config.OrdersConfig, logger *zap.Logger, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		db:           db,
		transitioner: t,
		timeout:      timeout,
		pages:        pages,
		logger:       logger.Named("delivery"),
		metrics:      m,
	}
}

func (c *Coordinator) page(number, size int) store.Page {
	return store.NormalizePage(number, size, c.pages.PageSize, c.pages.MaxPageSize)
}

// ListClaimableOrders returns unassigned ready_for_delivery orders, oldest first.
func (c *Coordinator) ListClaimableOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	result, err := store.ListClaimableOrders(ctx, c.db, c.page(page, pageSize))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return result, nil
}

// ListAssignedOrders returns the agent's orders in the given statuses, or in
// the active delivery statuses when none are given.
func (c *Coordinator) ListAssignedOrders(ctx context.Context, agentID int64, statuses []models.OrderStatus, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	if len(statuses) == 0 {
		statuses = models.DefaultAssignedStatuses
	}
	for _, s := range statuses {
		if !s.Valid() {
			return nil, apperr.Validation(map[string]string{"status": "unknown order status " + string(s)})
		}
	}

	result, err := store.ListOrdersForAgent(ctx, c.db, agentID, statuses, c.page(page, pageSize))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return result, nil
}

// ClaimOrder assigns the order to the agent. The check and the assignment
// are one conditional UPDATE: if several agents race, one wins and the rest
// get ErrOrderNotClaimable.
func (c *Coordinator) ClaimOrder(ctx context.Context, agentID, orderID int64) (*models.Order, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	order, err := store.ClaimOrder(ctx, c.db, orderID, agentID)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrOrderNotClaimable):
			c.metrics.Claim("lost")
			c.logger.Info("claim_lost", zap.Int64("order_id", orderID), zap.Int64("agent_id", agentID))
		case errors.Is(err, apperr.ErrOrderNotFound):
			c.metrics.Claim("not_found")
		default:
			c.metrics.Claim("error")
			c.logger.Error("claim_failed", zap.Int64("order_id", orderID), zap.Error(err))
		}
		return nil, apperr.Internal(err)
	}

	order.Lines, err = store.ListOrderLines(ctx, c.db, orderID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	c.metrics.Claim("won")
	c.logger.Info("order_claimed", zap.Int64("order_id", orderID), zap.Int64("agent_id", agentID))
	return order, nil
}

// UpdateStatus moves an order assigned to the agent along the delivery sub-graph.
func (c *Coordinator) UpdateStatus(ctx context.Context, p models.Principal, orderID int64, status models.OrderStatus) (*models.Order, error) {
	return c.transitioner.Transition(ctx, lifecycle.ActorDelivery, p, orderID, lifecycle.Change{Status: &status})
}
