package service

import (
	"context"

	"warehouse-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	maxOrderNumberLen      = 64
	maxOrderNumberAttempts = 100
)

type CreateOrderItem struct {
	ProductID uuid.UUID
	Quantity  int
	Price     decimal.Decimal
}

type CreateOrderInput struct {
	SupplierID  uuid.UUID
	OrderNumber string // generated when empty
	Items       []CreateOrderItem
	Notes       string
}

// UpdateOrderInput is a partial update; nil fields are left unchanged.
type UpdateOrderInput struct {
	Status *models.OrderStatus
	Notes  *string
}

type ListFilter struct {
	SupplierID *uuid.UUID
	Status     *models.OrderStatus
	Limit      int
	Offset     int
}

type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, in UpdateOrderInput) (*models.Order, error)
	FulfillOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
}
