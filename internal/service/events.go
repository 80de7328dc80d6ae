package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderItemEvent struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type OrderCreatedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	SupplierID  uuid.UUID        `json:"supplier_id"`
	Items       []OrderItemEvent `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	CreatedAt   time.Time        `json:"created_at"`
}

type StockCredit struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Quantity    int       `json:"quantity"`
	Created     bool      `json:"created"`
}

type OrderFulfilledEvent struct {
	OrderID     uuid.UUID     `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	Credits     []StockCredit `json:"credits"`
	FulfilledAt time.Time     `json:"fulfilled_at"`
}

type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

type StockAdjustedEvent struct {
	InventoryID uuid.UUID `json:"inventory_id"`
	ProductID   uuid.UUID `json:"product_id"`
	Delta       int       `json:"delta"`
	Quantity    int       `json:"quantity"`
	Reason      string    `json:"reason,omitempty"`
	AdjustedAt  time.Time `json:"adjusted_at"`
}

type LowStockItem struct {
	InventoryID  uuid.UUID `json:"inventory_id"`
	ProductID    uuid.UUID `json:"product_id"`
	SKU          string    `json:"sku,omitempty"`
	Location     string    `json:"location"`
	Quantity     int       `json:"quantity"`
	ReorderLevel int       `json:"reorder_level"`
}

type LowStockEvent struct {
	Items      []LowStockItem `json:"items"`
	DetectedAt time.Time      `json:"detected_at"`
}

// EventBus publishes domain events after the owning transaction has committed.
// Delivery is best effort; callers log failures and carry on.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderFulfilled(ctx context.Context, e OrderFulfilledEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
	PublishStockAdjusted(ctx context.Context, e StockAdjustedEvent) error
	PublishLowStock(ctx context.Context, e LowStockEvent) error
}
