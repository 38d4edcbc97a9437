//go:build integration

package orders_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/config"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/inventory"
	"github.com/Stephi-25/Odjassa/internal/lifecycle"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/orders"
	"github.com/Stephi-25/Odjassa/internal/testutil/pgtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type OrdersIntegrationSuite struct {
	suite.Suite
	pg      *pgtest.Database
	service *orders.Service

	customer *models.User
	vendor   *models.User
	agent    *models.User
	admin    *models.User
}

func (s *OrdersIntegrationSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration test in short mode")
	}
	pg, err := pgtest.Start(context.Background())
	s.Require().NoError(err)
	s.pg = pg
}

func (s *OrdersIntegrationSuite) TearDownSuite() {
	if s.pg != nil {
		s.Require().NoError(s.pg.Close(context.Background()))
	}
}

func (s *OrdersIntegrationSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))

	opts := database.DefaultTxOptions()
	opts.Timeout = 10 * time.Second
	opts.LockTimeout = 5 * time.Second
	s.service = orders.NewService(s.pg.DB, inventory.NewGuard(false, nil), opts,
		config.OrdersConfig{DefaultCurrency: "USD", PageSize: 10, MaxPageSize: 100}, zap.NewNop(), nil)

	s.customer = s.pg.User(s.T(), models.RoleCustomer)
	s.vendor = s.pg.User(s.T(), models.RoleVendor)
	s.agent = s.pg.User(s.T(), models.RoleDeliveryPerson)
	s.admin = s.pg.User(s.T(), models.RoleAdmin)
}

func (s *OrdersIntegrationSuite) principal(u *models.User) models.Principal {
	return models.Principal{UserID: u.ID, Role: u.Role}
}

func (s *OrdersIntegrationSuite) request(lines ...orders.CartLine) orders.CreateOrderRequest {
	return orders.CreateOrderRequest{
		Items: lines,
		ShippingAddress: &models.Address{
			Street: "5 Avenue de la Paix", City: "Lome", PostalCode: "BP 100", Country: "TG",
		},
		PaymentMethod: "card",
		ShippingCost:  decimal.RequireFromString("2.00"),
	}
}

func (s *OrdersIntegrationSuite) TestCreateOrderPricesAndDecrements() {
	product := s.pg.Product(s.T(), s.vendor.ID, "10.00", 5, models.ProductStatusActive)
	untouched := s.pg.Product(s.T(), s.vendor.ID, "3.00", 7, models.ProductStatusActive)

	order, err := s.service.CreateOrder(context.Background(), s.principal(s.customer),
		s.request(orders.CartLine{ProductID: product.ID, Quantity: 3}))
	s.Require().NoError(err)

	s.True(order.TotalAmount.Equal(decimal.RequireFromString("32.00")), order.TotalAmount.String())
	s.Equal(models.OrderStatusPendingPayment, order.Status)
	s.Equal(models.PaymentStatusPending, order.PaymentStatus)
	s.Equal("USD", order.Currency)
	s.Equal(2, s.pg.Stock(s.T(), product.ID))
	s.Equal(7, s.pg.Stock(s.T(), untouched.ID))

	s.Require().Len(order.Lines, 1)
	line := order.Lines[0]
	s.Equal(s.vendor.ID, line.VendorID)
	s.Equal(product.Name, line.ProductName)
	s.Equal(product.SKU, line.ProductSKU)
	s.Equal(models.ItemStatusPending, line.ItemStatus)
	s.True(line.PriceAtPurchase.Equal(product.Price))
}

func (s *OrdersIntegrationSuite) TestPriceIsSnapshotted() {
	product := s.pg.Product(s.T(), s.vendor.ID, "10.00", 5, models.ProductStatusActive)

	order, err := s.service.CreateOrder(context.Background(), s.principal(s.customer),
		s.request(orders.CartLine{ProductID: product.ID, Quantity: 1}))
	s.Require().NoError(err)

	_, err = s.pg.DB.Exec(`UPDATE products SET price = 99.00 WHERE id = $1`, product.ID)
	s.Require().NoError(err)

	got, err := s.service.GetOrder(context.Background(), s.principal(s.customer), order.ID)
	s.Require().NoError(err)
	s.True(got.Lines[0].PriceAtPurchase.Equal(decimal.RequireFromString("10.00")))
	s.True(got.TotalAmount.Equal(decimal.RequireFromString("12.00")))
}

func (s *OrdersIntegrationSuite) TestInsufficientStockLeavesStockAlone() {
	product := s.pg.Product(s.T(), s.vendor.ID, "4.50", 4, models.ProductStatusActive)

	_, err := s.service.CreateOrder(context.Background(), s.principal(s.customer),
		s.request(orders.CartLine{ProductID: product.ID, Quantity: 10}))
	s.ErrorIs(err, apperr.ErrInsufficientStock)
	s.Equal(4, s.pg.Stock(s.T(), product.ID))
	s.Equal(0, s.pg.Count(s.T(), "orders"))
}

func (s *OrdersIntegrationSuite) TestFailingLineRollsBackWholeCart() {
	good := s.pg.Product(s.T(), s.vendor.ID, "1.00", 10, models.ProductStatusActive)
	inactive := s.pg.Product(s.T(), s.vendor.ID, "1.00", 10, models.ProductStatusInactive)

	_, err := s.service.CreateOrder(context.Background(), s.principal(s.customer), s.request(
		orders.CartLine{ProductID: good.ID, Quantity: 2},
		orders.CartLine{ProductID: inactive.ID, Quantity: 1},
	))
	s.ErrorIs(err, apperr.ErrProductUnavailable)

	s.Equal(10, s.pg.Stock(s.T(), good.ID))
	s.Equal(10, s.pg.Stock(s.T(), inactive.ID))
	s.Equal(0, s.pg.Count(s.T(), "orders"))
	s.Equal(0, s.pg.Count(s.T(), "order_items"))
}

func (s *OrdersIntegrationSuite) TestMissingProduct() {
	_, err := s.service.CreateOrder(context.Background(), s.principal(s.customer),
		s.request(orders.CartLine{ProductID: 424242, Quantity: 1}))
	s.ErrorIs(err, apperr.ErrProductNotFound)
	s.Equal(apperr.KindValidation, apperr.KindOf(err))
}

func (s *OrdersIntegrationSuite) TestConcurrentOrdersNeverOversell() {
	product := s.pg.Product(s.T(), s.vendor.ID, "2.00", 5, models.ProductStatusActive)

	const buyers = 12
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.CreateOrder(context.Background(), s.principal(s.customer),
				s.request(orders.CartLine{ProductID: product.ID, Quantity: 1}))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		s.ErrorIs(err, apperr.ErrInsufficientStock)
	}

	s.Equal(5, succeeded)
	s.Equal(0, s.pg.Stock(s.T(), product.ID))
	s.Equal(5, s.pg.Count(s.T(), "orders"))
}

func (s *OrdersIntegrationSuite) TestDuplicateTransactionID() {
	product := s.pg.Product(s.T(), s.vendor.ID, "2.00", 5, models.ProductStatusActive)
	req := s.request(orders.CartLine{ProductID: product.ID, Quantity: 1})
	txID := "pay_12345"
	req.TransactionID = &txID

	_, err := s.service.CreateOrder(context.Background(), s.principal(s.customer), req)
	s.Require().NoError(err)

	_, err = s.service.CreateOrder(context.Background(), s.principal(s.customer), req)
	s.ErrorIs(err, apperr.ErrDuplicateTxID)
	s.Equal(apperr.KindConflict, apperr.KindOf(err))
	s.Equal(4, s.pg.Stock(s.T(), product.ID))
}

func (s *OrdersIntegrationSuite) placeOrder() *models.Order {
	product := s.pg.Product(s.T(), s.vendor.ID, "5.00", 10, models.ProductStatusActive)
	order, err := s.service.CreateOrder(context.Background(), s.principal(s.customer),
		s.request(orders.CartLine{ProductID: product.ID, Quantity: 1}))
	s.Require().NoError(err)
	return order
}

func status(st models.OrderStatus) *models.OrderStatus { return &st }

func (s *OrdersIntegrationSuite) TestAssignedAgentDelivers() {
	order := s.placeOrder()
	s.pg.SetOrderState(s.T(), order.ID, models.OrderStatusOutForDelivery, &s.agent.ID)

	other := s.pg.User(s.T(), models.RoleDeliveryPerson)
	_, err := s.service.TransitionOrder(context.Background(), s.principal(other), order.ID,
		lifecycle.Change{Status: status(models.OrderStatusDelivered)})
	s.ErrorIs(err, apperr.ErrForbidden)

	delivered, err := s.service.TransitionOrder(context.Background(), s.principal(s.agent), order.ID,
		lifecycle.Change{Status: status(models.OrderStatusDelivered)})
	s.Require().NoError(err)
	s.Equal(models.OrderStatusDelivered, delivered.Status)
	s.Require().NotNil(delivered.DeliveredAt)
	s.WithinDuration(time.Now(), *delivered.DeliveredAt, time.Minute)
}

func (s *OrdersIntegrationSuite) TestAgentCannotSkipOutForDelivery() {
	order := s.placeOrder()
	s.pg.SetOrderState(s.T(), order.ID, models.OrderStatusAwaitingPickup, &s.agent.ID)

	_, err := s.service.TransitionOrder(context.Background(), s.principal(s.agent), order.ID,
		lifecycle.Change{Status: status(models.OrderStatusDelivered)})
	s.ErrorIs(err, apperr.ErrInvalidTransition)

	got, err := s.service.GetOrder(context.Background(), s.principal(s.admin), order.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusAwaitingPickup, got.Status)
	s.Nil(got.DeliveredAt)
}

func (s *OrdersIntegrationSuite) TestTransitionMissingOrder() {
	_, err := s.service.TransitionOrder(context.Background(), s.principal(s.admin), 999999,
		lifecycle.Change{Status: status(models.OrderStatusProcessing)})
	s.ErrorIs(err, apperr.ErrOrderNotFound)
}

func (s *OrdersIntegrationSuite) TestAdminAndVendorDriveFulfilment() {
	order := s.placeOrder()
	paid := models.PaymentStatusPaid
	txID := "pay_abc"

	updated, err := s.service.TransitionOrder(context.Background(), s.principal(s.admin), order.ID, lifecycle.Change{
		Status:        status(models.OrderStatusProcessing),
		PaymentStatus: &paid,
		TransactionID: &txID,
	})
	s.Require().NoError(err)
	s.Equal(models.OrderStatusProcessing, updated.Status)
	s.Equal(models.PaymentStatusPaid, updated.PaymentStatus)
	s.Equal(txID, *updated.TransactionID)

	stranger := s.pg.User(s.T(), models.RoleVendor)
	_, err = s.service.TransitionOrder(context.Background(), s.principal(stranger), order.ID,
		lifecycle.Change{Status: status(models.OrderStatusReadyForDelivery)})
	s.ErrorIs(err, apperr.ErrForbidden)

	ready, err := s.service.TransitionOrder(context.Background(), s.principal(s.vendor), order.ID,
		lifecycle.Change{Status: status(models.OrderStatusReadyForDelivery)})
	s.Require().NoError(err)
	s.Equal(models.OrderStatusReadyForDelivery, ready.Status)

	second := s.placeOrder()
	_, err = s.service.TransitionOrder(context.Background(), s.principal(s.admin), second.ID,
		lifecycle.Change{TransactionID: &txID})
	s.ErrorIs(err, apperr.ErrDuplicateTxID)
}

func (s *OrdersIntegrationSuite) TestGetOrderVisibility() {
	order := s.placeOrder()

	_, err := s.service.GetOrder(context.Background(), s.principal(s.customer), order.ID)
	s.NoError(err)
	_, err = s.service.GetOrder(context.Background(), s.principal(s.vendor), order.ID)
	s.NoError(err)

	other := s.pg.User(s.T(), models.RoleCustomer)
	_, err = s.service.GetOrder(context.Background(), s.principal(other), order.ID)
	s.ErrorIs(err, apperr.ErrForbidden)

	_, err = s.service.GetOrder(context.Background(), s.principal(s.customer), 999999)
	s.ErrorIs(err, apperr.ErrOrderNotFound)
}

func (s *OrdersIntegrationSuite) TestListOrdersForUserPaginates() {
	for i := 0; i < 3; i++ {
		s.placeOrder()
	}

	first, err := s.service.ListOrdersForUser(context.Background(), s.customer.ID, "", 2)
	s.Require().NoError(err)
	s.Len(first.Items, 2)
	s.True(first.HasMore)

	second, err := s.service.ListOrdersForUser(context.Background(), s.customer.ID, first.NextCursor, 2)
	s.Require().NoError(err)
	s.Len(second.Items, 1)
	s.False(second.HasMore)
	s.Greater(first.Items[1].ID, second.Items[0].ID)

	_, err = s.service.ListOrdersForUser(context.Background(), s.customer.ID, "%%%", 2)
	s.ErrorIs(err, apperr.ErrValidation)
}

func (s *OrdersIntegrationSuite) TestCompleteDelivered() {
	old := s.placeOrder()
	recent := s.placeOrder()
	s.pg.SetOrderState(s.T(), old.ID, models.OrderStatusDelivered, &s.agent.ID)
	s.pg.SetOrderState(s.T(), recent.ID, models.OrderStatusDelivered, &s.agent.ID)
	s.pg.SetDeliveredAt(s.T(), old.ID, time.Now().Add(-96*time.Hour))
	s.pg.SetDeliveredAt(s.T(), recent.ID, time.Now().Add(-time.Hour))

	n, err := s.service.CompleteDelivered(context.Background(), time.Now().Add(-72*time.Hour), 10)
	s.Require().NoError(err)
	s.Equal(1, n)

	got, err := s.service.GetOrder(context.Background(), s.principal(s.admin), old.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusCompleted, got.Status)

	got, err = s.service.GetOrder(context.Background(), s.principal(s.admin), recent.ID)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusDelivered, got.Status)
}

func TestOrdersIntegration(t *testing.T) {
	suite.Run(t, new(OrdersIntegrationSuite))
}
