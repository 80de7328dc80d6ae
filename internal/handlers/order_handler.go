package handlers

import (
	"net/http"

	"warehouse-service/internal/dto"
	"warehouse-service/internal/models"
	"warehouse-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders service.OrderService
	log    *zap.Logger
}

func NewOrderHandler(orders service.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

// Create godoc
// @Summary Create an order
// @Description Creates an order with its line items; the order number is generated when omitted
// @Security BearerAuth
// @Tags orders
// @Accept json
// @Produce json
// @Param order body dto.CreateOrderRequest true "Order"
// @Success 201 {object} dto.OrderResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse "Supplier not found"
// @Failure 409 {object} dto.ConflictErrorResponse "Order number taken"
// @Router /api/v1/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "create order", err)
		return
	}

	in := service.CreateOrderInput{
		SupplierID:  uuid.MustParse(req.SupplierID),
		OrderNumber: req.OrderNumber,
		Notes:       req.Notes,
		Items:       make([]service.CreateOrderItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, service.CreateOrderItem{
			ProductID: uuid.MustParse(it.ProductID),
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), in)
	if err != nil {
		writeError(c, h.log, "create order", err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToOrderResponse(order))
}

// Get godoc
// @Summary Get an order
// @Security BearerAuth
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "get order", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// List godoc
// @Summary List orders
// @Security BearerAuth
// @Tags orders
// @Produce json
// @Param supplier_id query string false "Supplier ID"
// @Param status query string false "Status"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.ListResponse[dto.OrderResponse]
// @Router /api/v1/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, h.log, "list orders", err)
		return
	}

	f := service.ListFilter{SupplierID: optionalUUID(q.SupplierID), Limit: q.Limit, Offset: q.Offset}
	if q.Status != "" {
		st := models.OrderStatus(q.Status)
		f.Status = &st
	}

	list, total, err := h.orders.ListOrders(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.log, "list orders", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderList(list, total))
}

// Update godoc
// @Summary Update order status or notes
// @Description Moving to completed fulfills the order and credits stock
// @Security BearerAuth
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param order body dto.UpdateOrderRequest true "Changes"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Invalid transition"
// @Router /api/v1/orders/{id} [put]
func (h *OrderHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, h.log, "update order", err)
		return
	}

	in := service.UpdateOrderInput{Notes: req.Notes}
	if req.Status != nil {
		st := models.OrderStatus(*req.Status)
		in.Status = &st
	}

	order, err := h.orders.UpdateOrder(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, h.log, "update order", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// Fulfill godoc
// @Summary Fulfill an order
// @Description Credits every line item into stock and marks the order completed
// @Security BearerAuth
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Failure 409 {object} dto.ConflictErrorResponse "Already fulfilled"
// @Router /api/v1/orders/{id}/fulfill [post]
func (h *OrderHandler) Fulfill(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.orders.FulfillOrder(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, "fulfill order", err)
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}
