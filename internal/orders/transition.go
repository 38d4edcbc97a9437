package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/lifecycle"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/store"
	"go.uber.org/zap"
)

var errStatusMoved = apperr.New(apperr.KindConflict, "order_status_changed", "order status changed concurrently")

// TransitionOrder applies a change on behalf of the principal, who acts with
// the actor class of their role.
func (s *Service) TransitionOrder(ctx context.Context, p models.Principal, orderID int64, change lifecycle.Change) (*models.Order, error) {
	actor, ok := lifecycle.ActorForRole(p.Role)
	if !ok {
		return nil, apperr.ErrForbidden.WithMessage("role %s cannot change order status", p.Role)
	}
	return s.Transition(ctx, actor, p, orderID, change)
}

// Transition is the single write path for status-class fields.
func (s *Service) Transition(ctx context.Context, actor lifecycle.Actor, p models.Principal, orderID int64, change lifecycle.Change) (*models.Order, error) {
	if err := change.Validate(actor); err != nil {
		return nil, err
	}

	var updated *models.Order
	var from models.OrderStatus
	err := database.WithTransaction(ctx, s.db, s.txOpts, func(ctx context.Context, tx *sql.Tx) error {
		order, err := store.LockOrder(ctx, tx, orderID)
		if err != nil {
			return err
		}
		from = order.Status

		if actor == lifecycle.ActorVendor {
			if order.Lines, err = store.ListOrderLines(ctx, tx, orderID); err != nil {
				return err
			}
		}
		if err := lifecycle.Authorize(actor, p, order); err != nil {
			return err
		}

		update, err := s.plan(actor, p, order, change)
		if err != nil {
			return err
		}

		updated, err = store.UpdateOrderStatus(ctx, tx, orderID, update)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				return errStatusMoved
			case database.IsUniqueViolation(err, transactionIDConstraint):
				return apperr.ErrDuplicateTxID.WithCause(err)
			}
			return err
		}

		updated.Lines, err = store.ListOrderLines(ctx, tx, orderID)
		return err
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			s.logger.Error("order_transition_failed",
				zap.Int64("order_id", orderID), zap.String("actor", string(actor)), zap.Error(err))
		}
		return nil, apperr.Internal(err)
	}

	s.metrics.Transition(string(actor), string(updated.Status))
	s.logger.Info("order_transitioned",
		zap.Int64("order_id", orderID),
		zap.String("actor", string(actor)),
		zap.Int64("user_id", p.UserID),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)))
	return updated, nil
}

// plan turns a validated change into a conditional update against the
// current row. Same-status writes are only allowed for admins changing
// another field.
func (s *Service) plan(actor lifecycle.Actor, p models.Principal, order *models.Order, change lifecycle.Change) (store.StatusUpdate, error) {
	target := order.Status
	if change.Status != nil {
		target = *change.Status
	}

	if target == order.Status {
		if actor != lifecycle.ActorAdmin {
			return store.StatusUpdate{}, apperr.ErrInvalidTransition.WithMessage("order is already %s", order.Status)
		}
		if change.PaymentStatus == nil && change.TransactionID == nil &&
			change.TrackingNumber == nil && change.DeliveredAt == nil {
			return store.StatusUpdate{}, apperr.Validation(map[string]string{"status": "order is already in this status"})
		}
	} else if err := lifecycle.CheckTransition(actor, order.Status, target); err != nil {
		return store.StatusUpdate{}, err
	}

	update := store.StatusUpdate{
		From:           order.Status,
		To:             target,
		PaymentStatus:  change.PaymentStatus,
		TransactionID:  change.TransactionID,
		TrackingNumber: change.TrackingNumber,
		DeliveredAt:    change.DeliveredAt,
	}
	if target == models.OrderStatusDelivered && order.Status != models.OrderStatusDelivered && change.DeliveredAt == nil {
		update.StampDelivered = true
	}
	if actor == lifecycle.ActorDelivery {
		agentID := p.UserID
		update.AssignedTo = &agentID
	}
	return update, nil
}

// CompleteDelivered moves delivered orders older than cutoff to completed and
// returns how many were moved. Orders locked by another worker are skipped.
func (s *Service) CompleteDelivered(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	completed := 0
	err := database.WithTransaction(ctx, s.db, s.txOpts, func(ctx context.Context, tx *sql.Tx) error {
		completed = 0
		due, err := store.LockDeliveredBefore(ctx, tx, cutoff, limit)
		if err != nil {
			return err
		}

		for _, order := range due {
			if err := lifecycle.CheckTransition(lifecycle.ActorSystem, order.Status, models.OrderStatusCompleted); err != nil {
				return err
			}
			_, err := store.UpdateOrderStatus(ctx, tx, order.ID, store.StatusUpdate{
				From: order.Status,
				To:   models.OrderStatusCompleted,
			})
			if err != nil {
				return err
			}
			completed++
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Internal(err)
	}

	for i := 0; i < completed; i++ {
		s.metrics.Transition(string(lifecycle.ActorSystem), string(models.OrderStatusCompleted))
	}
	return completed, nil
}
