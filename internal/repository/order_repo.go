package repository

import (
	"context"
	"errors"
	"time"

	"warehouse-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderListFilter struct {
	SupplierID *uuid.UUID
	Status     *models.OrderStatus
	Limit      int
	Offset     int
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error
	List(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error)
	Count(ctx context.Context) (int64, error)

	// UpdateFieldsIfStatus writes fields only while the order still has status expected.
	UpdateFieldsIfStatus(ctx context.Context, id uuid.UUID, expected models.OrderStatus, fields map[string]any) (bool, error)
	// MarkFulfilled flips a not yet fulfilled pending/processing order to completed.
	// It reports false when another caller got there first.
	MarkFulfilled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit("Supplier", "Items").Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id") }).
		Preload("Items.Product").
		First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", number).Count(&cnt).Error
	return cnt > 0, err
}

func (r *orderRepo) UpdateTotal(ctx context.Context, id uuid.UUID, total decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("total_amount", total).Error
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if f.SupplierID != nil {
		q = q.Where("supplier_id = ?", *f.SupplierID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
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

	var list []models.Order
	if err := q.Preload("Supplier").Preload("Items").
		Order("created_at DESC, id").
		Limit(f.Limit).Offset(f.Offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *orderRepo) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&cnt).Error
	return cnt, err
}

func (r *orderRepo) UpdateFieldsIfStatus(ctx context.Context, id uuid.UUID, expected models.OrderStatus, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return true, nil
	}
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(fields)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) MarkFulfilled(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE orders
SET status = @completed,
    fulfilled_at = @now,
    updated_at = @now
WHERE id = @id
  AND fulfilled_at IS NULL
  AND status IN (@pending, @processing)
`, map[string]any{
		"id":         id,
		"now":        now,
		"completed":  string(models.OrderStatusCompleted),
		"pending":    string(models.OrderStatusPending),
		"processing": string(models.OrderStatusProcessing),
	})
	return tx.RowsAffected > 0, tx.Error
}
