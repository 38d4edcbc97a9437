package httpapi

import (
	"context"

	"github.com/Stephi-25/Odjassa/internal/lifecycle"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/orders"
	"github.com/Stephi-25/Odjassa/internal/store"
	"github.com/stretchr/testify/mock"
)

type mockOrders struct{ mock.Mock }

func (m *mockOrders) CreateOrder(ctx context.Context, p models.Principal, req orders.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, p, req)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) GetOrder(ctx context.Context, p models.Principal, orderID int64) (*models.Order, error) {
	args := m.Called(ctx, p, orderID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) ListOrdersForUser(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error) {
	args := m.Called(ctx, userID, cursor, limit)
	page, _ := args.Get(0).(*store.CursorPage[models.Order])
	return page, args.Error(1)
}

func (m *mockOrders) TransitionOrder(ctx context.Context, p models.Principal, orderID int64, change lifecycle.Change) (*models.Order, error) {
	args := m.Called(ctx, p, orderID, change)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

type mockDelivery struct{ mock.Mock }

func (m *mockDelivery) ListClaimableOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	args := m.Called(ctx, page, pageSize)
	p, _ := args.Get(0).(*store.OffsetPage[models.Order])
	return p, args.Error(1)
}

func (m *mockDelivery) ListAssignedOrders(ctx context.Context, agentID int64, statuses []models.OrderStatus, page, pageSize int) (*store.OffsetPage[models.Order], error) {
	args := m.Called(ctx, agentID, statuses, page, pageSize)
	p, _ := args.Get(0).(*store.OffsetPage[models.Order])
	return p, args.Error(1)
}

func (m *mockDelivery) ClaimOrder(ctx context.Context, agentID, orderID int64) (*models.Order, error) {
	args := m.Called(ctx, agentID, orderID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockDelivery) UpdateStatus(ctx context.Context, p models.Principal, orderID int64, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, p, orderID, status)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

type mockStock struct{ mock.Mock }

func (m *mockStock) SetStock(ctx context.Context, p models.Principal, productID int64, newStock, expectedVersion int) (*models.Product, error) {
	args := m.Called(ctx, p, productID, newStock, expectedVersion)
	pr, _ := args.Get(0).(*models.Product)
	return pr, args.Error(1)
}

type mockAuth struct{ mock.Mock }

func (m *mockAuth) Resolve(ctx context.Context, raw string) (models.Principal, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(models.Principal), args.Error(1)
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }
