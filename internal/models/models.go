package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IDs are generated client-side so the schema does not depend on gen_random_uuid().

type Supplier struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name  string    `gorm:"type:text;not null"`
	Email string    `gorm:"type:text"`
	Phone string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Supplier) TableName() string { return "suppliers" }

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Name        string          `gorm:"type:text;not null"`
	SKU         string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_products_sku"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	SupplierID  *uuid.UUID      `gorm:"type:uuid;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Inventory is the on-hand quantity of a product at a location. Several rows per
// product are allowed; (product_id, location) is indexed but not unique.
type Inventory struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index:ix_inventories_product_location,priority:1"`
	Quantity     int       `gorm:"not null;default:0"`
	ReorderLevel int       `gorm:"not null;default:0"`
	Location     string    `gorm:"type:text;not null;default:'';index:ix_inventories_product_location,priority:2"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (Inventory) TableName() string { return "inventories" }

func (i *Inventory) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// IsLowStock mirrors the SQL predicate used by the low-stock query.
func (i *Inventory) IsLowStock() bool {
	return i.Quantity <= i.ReorderLevel
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order is a purchase order against one supplier. TotalAmount is the persisted sum of
// its items and is written once, inside the creating transaction.
type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SupplierID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderNumber string          `gorm:"type:varchar(64);not null;uniqueIndex:ux_orders_order_number"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Notes       string          `gorm:"type:text"`
	FulfilledAt *time.Time

	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`

	Supplier *Supplier  `gorm:"foreignKey:SupplierID"`
	Items    []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is immutable once created. Price is a snapshot taken at order time.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null"`

	CreatedAt time.Time `gorm:"not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (OrderItem) TableName() string { return "order_items" }

func (it *OrderItem) BeforeCreate(*gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

func (it OrderItem) Total() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// OrderCounter backs generated order numbers; one row per sequence name.
type OrderCounter struct {
	Name  string `gorm:"type:varchar(32);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

func (OrderCounter) TableName() string { return "order_counters" }

const OrderNumberCounter = "orders"
