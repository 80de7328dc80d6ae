package service

import (
	"context"

	"warehouse-service/internal/models"

	"github.com/google/uuid"
)

type CreateInventoryInput struct {
	ProductID    uuid.UUID
	Quantity     int
	ReorderLevel int
	Location     string
}

type InventoryFilter struct {
	ProductID *uuid.UUID
	Location  *string
	LowStock  bool
	Limit     int
	Offset    int
}

// LowStockCache stores the low-stock result between stock mutations.
// Every invalidation bumps a generation; SetLowStock stores items only while the
// generation still equals gen, so a load that raced an invalidation is dropped.
type LowStockCache interface {
	GetLowStock(ctx context.Context) ([]models.Inventory, bool, error)
	LowStockGeneration(ctx context.Context) (int64, error)
	SetLowStock(ctx context.Context, items []models.Inventory, gen int64) (bool, error)
	InvalidateLowStock(ctx context.Context) error
}

type InventoryService interface {
	AdjustStock(ctx context.Context, id uuid.UUID, delta int, reason string) (*models.Inventory, error)
	CheckLowStock(ctx context.Context) ([]models.Inventory, error)

	CreateInventory(ctx context.Context, in CreateInventoryInput) (*models.Inventory, error)
	GetInventory(ctx context.Context, id uuid.UUID) (*models.Inventory, error)
	ListInventory(ctx context.Context, f InventoryFilter) ([]models.Inventory, int64, error)
	DeleteInventory(ctx context.Context, id uuid.UUID) error
}
