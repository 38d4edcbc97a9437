// Package httpapi exposes the order and delivery operations over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/Stephi-25/Odjassa/internal/lifecycle"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/orders"
	"github.com/Stephi-25/Odjassa/internal/store"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, p models.Principal, req orders.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, p models.Principal, orderID int64) (*models.Order, error)
	ListOrdersForUser(ctx context.Context, userID int64, cursor string, limit int) (*store.CursorPage[models.Order], error)
	TransitionOrder(ctx context.Context, p models.Principal, orderID int64, change lifecycle.Change) (*models.Order, error)
}

type DeliveryService interface {
	ListClaimableOrders(ctx context.Context, page, pageSize int) (*store.OffsetPage[models.Order], error)
	ListAssignedOrders(ctx context.Context, agentID int64, statuses []models.OrderStatus, page, pageSize int) (*store.OffsetPage[models.Order], error)
	ClaimOrder(ctx context.Context, agentID, orderID int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, p models.Principal, orderID int64, status models.OrderStatus) (*models.Order, error)
}

type StockService interface {
	SetStock(ctx context.Context, p models.Principal, productID int64, newStock, expectedVersion int) (*models.Product, error)
}

type Authenticator interface {
	Resolve(ctx context.Context, rawUserID string) (models.Principal, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	orders   OrderService
	delivery DeliveryService
	stock    StockService
	auth     Authenticator
	db       Pinger
	metrics  http.Handler
	logger   *zap.Logger
	echo     *echo.Echo
}

type Deps struct {
	Orders   OrderService
	Delivery DeliveryService
	Stock    StockService
	Auth     Authenticator
	DB       Pinger
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *zap.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		orders:   d.Orders,
		delivery: d.Delivery,
		stock:    d.Stock,
		auth:     d.Auth,
		db:       d.DB,
		metrics:  d.Metrics,
		logger:   d.Logger.Named("http"),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(requestLogger(s.logger))

	s.routes(e)
	s.echo = e
	return s
}

func (s *Server) routes(e *echo.Echo) {
	e.GET("/health", s.Health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}

	api := e.Group("/api/v1", s.authenticate)

	api.POST("/orders", s.CreateOrder)
	api.GET("/orders", s.ListMyOrders)
	api.GET("/orders/:orderId", s.GetOrder)

	admin := api.Group("/admin", requireRole(models.RoleAdmin))
	admin.PATCH("/orders/:orderId/status", s.AdminUpdateOrderStatus)

	vendor := api.Group("/vendor")
	vendor.PATCH("/orders/:orderId/status", s.VendorUpdateOrderStatus, requireRole(models.RoleVendor))
	vendor.PUT("/products/:productId/stock", s.SetProductStock, requireRole(models.RoleVendor, models.RoleAdmin))

	delivery := api.Group("/delivery", requireRole(models.RoleDeliveryPerson))
	delivery.GET("/available", s.ListAvailableOrders)
	delivery.GET("/my-orders", s.ListMyDeliveries)
	delivery.PATCH("/orders/:orderId/claim", s.ClaimOrder)
	delivery.PATCH("/orders/:orderId/status", s.DeliveryUpdateOrderStatus)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Health handles GET /health.
func (s *Server) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
