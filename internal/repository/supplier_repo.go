package repository

import (
	"context"
	"errors"

	"warehouse-service/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierRepo interface {
	Create(ctx context.Context, s *models.Supplier) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type supplierRepo struct{ db *gorm.DB }

func NewSupplierRepo(db *gorm.DB) SupplierRepo { return &supplierRepo{db: db} }

func (r *supplierRepo) Create(ctx context.Context, s *models.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *supplierRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var s models.Supplier
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &s, err
}

func (r *supplierRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Supplier{}).Where("id = ?", id).Count(&cnt).Error
	return cnt > 0, err
}
