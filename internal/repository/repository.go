package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB          *gorm.DB
	Suppliers   SupplierRepo
	Products    ProductRepo
	Inventories InventoryRepo
	Orders      OrderRepo
	OrderItems  OrderItemRepo
	Counters    CounterRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:          db,
		Suppliers:   NewSupplierRepo(db),
		Products:    NewProductRepo(db),
		Inventories: NewInventoryRepo(db),
		Orders:      NewOrderRepo(db),
		OrderItems:  NewOrderItemRepo(db),
		Counters:    NewCounterRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx runs fn in one transaction spanning every repo. Any error returned by fn,
// or a cancelled ctx, rolls the whole unit back.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
