package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Stephi-25/Odjassa/internal/apperr"
	"github.com/Stephi-25/Odjassa/internal/lifecycle"
	"github.com/Stephi-25/Odjassa/internal/models"
	"github.com/Stephi-25/Odjassa/internal/orders"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(map[string]string{name: "must be an integer"})
	}
	return n, nil
}

func parseStatus(field, raw string) (models.OrderStatus, error) {
	status, err := models.ParseOrderStatus(raw)
	if err != nil {
		return "", apperr.Validation(map[string]string{field: "unknown order status"}).WithCause(err)
	}
	return status, nil
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Validation(map[string]string{"body": "malformed request body"}).WithCause(err)
	}
	return nil
}

type createOrderBody struct {
	Items                 []orders.CartLine `json:"items"`
	ShippingAddress       *models.Address   `json:"shipping_address"`
	BillingAddress        *models.Address   `json:"billing_address"`
	PaymentMethod         string            `json:"payment_method"`
	ShippingMethod        string            `json:"shipping_method"`
	ShippingCost          *decimal.Decimal  `json:"shipping_cost"`
	Currency              string            `json:"currency"`
	TransactionID         *string           `json:"transaction_id"`
	NotesToVendor         string            `json:"notes_to_vendor"`
	EstimatedDeliveryDate string            `json:"estimated_delivery_date"`
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation(map[string]string{"estimated_delivery_date": "must be YYYY-MM-DD"})
}

type createOrderResponse struct {
	Order *models.Order      `json:"order"`
	Items []models.OrderLine `json:"items"`
}

// CreateOrder handles POST /api/v1/orders.
func (s *Server) CreateOrder(c echo.Context) error {
	p, _ := principalFrom(c)

	var body createOrderBody
	if err := bind(c, &body); err != nil {
		return err
	}

	eta, err := parseDate(body.EstimatedDeliveryDate)
	if err != nil {
		return err
	}

	req := orders.CreateOrderRequest{
		Items:                 body.Items,
		ShippingAddress:       body.ShippingAddress,
		BillingAddress:        body.BillingAddress,
		PaymentMethod:         body.PaymentMethod,
		ShippingMethod:        body.ShippingMethod,
		Currency:              body.Currency,
		TransactionID:         body.TransactionID,
		NotesToVendor:         body.NotesToVendor,
		EstimatedDeliveryDate: eta,
	}
	if body.ShippingCost != nil {
		req.ShippingCost = *body.ShippingCost
	}

	order, err := s.orders.CreateOrder(c.Request().Context(), p, req)
	if err != nil {
		return err
	}

	header := *order
	header.Lines = nil
	return c.JSON(http.StatusCreated, createOrderResponse{Order: &header, Items: order.Lines})
}

// ListMyOrders handles GET /api/v1/orders.
func (s *Server) ListMyOrders(c echo.Context) error {
	p, _ := principalFrom(c)

	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	page, err := s.orders.ListOrdersForUser(c.Request().Context(), p.UserID, c.QueryParam("cursor"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// GetOrder handles GET /api/v1/orders/:orderId.
func (s *Server) GetOrder(c echo.Context) error {
	p, _ := principalFrom(c)

	id, err := pathID(c, "orderId")
	if err != nil {
		return err
	}

	order, err := s.orders.GetOrder(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

type adminStatusBody struct {
	Status         *string    `json:"status"`
	PaymentStatus  *string    `json:"payment_status"`
	TransactionID  *string    `json:"transaction_id"`
	TrackingNumber *string    `json:"tracking_number"`
	DeliveredAt    *time.Time `json:"delivered_at"`
}

func (b adminStatusBody) change() (lifecycle.Change, error) {
	ch := lifecycle.Change{
		TransactionID:  b.TransactionID,
		TrackingNumber: b.TrackingNumber,
		DeliveredAt:    b.DeliveredAt,
	}
	if b.Status != nil {
		st, err := parseStatus("status", *b.Status)
		if err != nil {
			return lifecycle.Change{}, err
		}
		ch.Status = &st
	}
	if b.PaymentStatus != nil {
		ps, err := models.ParsePaymentStatus(*b.PaymentStatus)
		if err != nil {
			return lifecycle.Change{}, apperr.Validation(map[string]string{"payment_status": "unknown payment status"}).WithCause(err)
		}
		ch.PaymentStatus = &ps
	}
	return ch, nil
}

// AdminUpdateOrderStatus handles PATCH /api/v1/admin/orders/:orderId/status.
func (s *Server) AdminUpdateOrderStatus(c echo.Context) error {
	p, _ := principalFrom(c)

	id, err := pathID(c, "orderId")
	if err != nil {
		return err
	}

	var body adminStatusBody
	if err := bind(c, &body); err != nil {
		return err
	}

	change, err := body.change()
	if err != nil {
		return err
	}

	order, err := s.orders.TransitionOrder(c.Request().Context(), p, id, change)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

type statusBody struct {
	Status string `json:"status"`
}

// VendorUpdateOrderStatus handles PATCH /api/v1/vendor/orders/:orderId/status.
func (s *Server) VendorUpdateOrderStatus(c echo.Context) error {
	p, _ := principalFrom(c)

	id, err := pathID(c, "orderId")
	if err != nil {
		return err
	}

	var body statusBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.Status == "" {
		return apperr.Validation(map[string]string{"status": "is required"})
	}

	st, err := parseStatus("status", body.Status)
	if err != nil {
		return err
	}

	order, err := s.orders.TransitionOrder(c.Request().Context(), p, id, lifecycle.Change{Status: &st})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

type stockBody struct {
	StockQuantity *int `json:"stock_quantity"`
	Version       int  `json:"version"`
}

// SetProductStock handles PUT /api/v1/vendor/products/:productId/stock.
func (s *Server) SetProductStock(c echo.Context) error {
	p, _ := principalFrom(c)

	id, err := pathID(c, "productId")
	if err != nil {
		return err
	}

	var body stockBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.StockQuantity == nil {
		return apperr.Validation(map[string]string{"stock_quantity": "is required"})
	}

	product, err := s.stock.SetStock(c.Request().Context(), p, id, *body.StockQuantity, body.Version)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, product)
}

// ListAvailableOrders handles GET /api/v1/delivery/available.
func (s *Server) ListAvailableOrders(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return err
	}

	result, err := s.delivery.ListClaimableOrders(c.Request().Context(), page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ListMyDeliveries handles GET /api/v1/delivery/my-orders.
func (s *Server) ListMyDeliveries(c echo.Context) error {
	p, _ := principalFrom(c)

	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	size, err := queryInt(c, "page_size")
	if err != nil {
		return err
	}

	var statuses []models.OrderStatus
	if raw := c.QueryParam("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			st, err := parseStatus("status", part)
			if err != nil {
				return err
			}
			statuses = append(statuses, st)
		}
	}

	result, err := s.delivery.ListAssignedOrders(c.Request().Context(), p.UserID, statuses, page, size)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ClaimOrder handles PATCH /api/v1/delivery/orders/:orderId/claim.
func (s *Server) ClaimOrder(c echo.Context) error {
	p, _ := principalFrom(c)

	id, err := pathID(c, "orderId")
	if err != nil {
		return err
	}

	order, err := s.delivery.ClaimOrder(c.Request().Context(), p.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}

// DeliveryUpdateOrderStatus handles PATCH /api/v1/delivery/orders/:orderId/status.
func (s *Server) DeliveryUpdateOrderStatus(c echo.Context) error {
	p, _ := principalFrom(c)

	id, err := pathID(c, "orderId")
	if err != nil {
		return err
	}

	var body statusBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.Status == "" {
		return apperr.Validation(map[string]string{"status": "is required"})
	}

	st, err := parseStatus("status", body.Status)
	if err != nil {
		return err
	}

	order, err := s.delivery.UpdateStatus(c.Request().Context(), p, id, st)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, order)
}
