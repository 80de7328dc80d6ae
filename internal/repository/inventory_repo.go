package repository

import (
	"context"
	"errors"
	"time"

	"warehouse-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryListFilter struct {
	ProductID *uuid.UUID
	Location  *string
	LowStock  bool
	Limit     int
	Offset    int
}

type InventoryRepo interface {
	Create(ctx context.Context, inv *models.Inventory) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Inventory, error)
	List(ctx context.Context, f InventoryListFilter) ([]models.Inventory, int64, error)
	ListLowStock(ctx context.Context) ([]models.Inventory, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// Adjust: quantity = max(0, quantity + delta) in one statement.
	Adjust(ctx context.Context, id uuid.UUID, delta int, now time.Time) (bool, error)
	// Credit: quantity += qty (qty > 0).
	Credit(ctx context.Context, id uuid.UUID, qty int, now time.Time) (bool, error)

	FindFirstForProduct(ctx context.Context, productID uuid.UUID) (*models.Inventory, error)
	// GetOrCreateForProduct returns the oldest record of the product, creating an empty one
	// at location when the product has none yet.
	GetOrCreateForProduct(ctx context.Context, productID uuid.UUID, location string, now time.Time) (*models.Inventory, bool, error)
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepo(db *gorm.DB) InventoryRepo { return &inventoryRepo{db: db} }

func (r *inventoryRepo) Create(ctx context.Context, inv *models.Inventory) error {
	return r.db.WithContext(ctx).Omit("Product").Create(inv).Error
}

func (r *inventoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).Preload("Product").First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &inv, err
}

func (r *inventoryRepo) List(ctx context.Context, f InventoryListFilter) ([]models.Inventory, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Inventory{})

	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if f.Location != nil {
		q = q.Where("location = ?", *f.Location)
	}
	if f.LowStock {
		q = q.Where("quantity <= reorder_level")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}

	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Inventory
	if err := q.Preload("Product").Order("created_at DESC, id").Limit(f.Limit).Offset(f.Offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *inventoryRepo) ListLowStock(ctx context.Context) ([]models.Inventory, error) {
	var list []models.Inventory
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("quantity <= reorder_level").
		Order("quantity ASC, id").
		Find(&list).Error
	return list, err
}

func (r *inventoryRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Inventory{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}

func (r *inventoryRepo) Adjust(ctx context.Context, id uuid.UUID, delta int, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET quantity = CASE WHEN quantity + @delta < 0 THEN 0 ELSE quantity + @delta END,
    updated_at = @now
WHERE id = @id
`, map[string]any{
		"id":    id,
		"delta": delta,
		"now":   now,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *inventoryRepo) Credit(ctx context.Context, id uuid.UUID, qty int, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE inventories
SET quantity = quantity + @q,
    updated_at = @now
WHERE id = @id
`, map[string]any{
		"id":  id,
		"q":   qty,
		"now": now,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *inventoryRepo) FindFirstForProduct(ctx context.Context, productID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC, id").
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &inv, err
}

func (r *inventoryRepo) GetOrCreateForProduct(ctx context.Context, productID uuid.UUID, location string, now time.Time) (*models.Inventory, bool, error) {
	inv, err := r.FindFirstForProduct(ctx, productID)
	if err != nil {
		return nil, false, err
	}
	if inv != nil {
		return inv, false, nil
	}

	inv = &models.Inventory{
		ProductID: productID,
		Quantity:  0,
		Location:  location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Create(ctx, inv); err != nil {
		return nil, false, err
	}
	return inv, true, nil
}
